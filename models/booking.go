package models

import (
	"time"

	"wayfare/utils"
)

// Booking snapshots the price at purchase time; the referenced tour's price
// may change later.
type Booking struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	TourID    string    `bson:"tourid" json:"tour"`
	UserID    string    `bson:"userid" json:"user"`
	Price     float64   `bson:"price" json:"price"`
	Paid      bool      `bson:"paid" json:"paid"`
	CreatedAt time.Time `bson:"createdat" json:"createdAt"`
	Rev       int       `bson:"__v" json:"-"`
}

func (b *Booking) EnsureID() {
	if b.ID == "" {
		b.ID = "b" + utils.GenerateRandomString(12)
	}
}

func (b *Booking) Normalize() {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
		b.Paid = true
	}
}

func (b *Booking) Validate() error {
	var problems []string
	if b.TourID == "" {
		problems = append(problems, "a booking must belong to a tour")
	}
	if b.UserID == "" {
		problems = append(problems, "a booking must belong to a user")
	}
	if b.Price <= 0 {
		problems = append(problems, "a booking must have a price")
	}
	if len(problems) > 0 {
		return validationError(problems)
	}
	return nil
}
