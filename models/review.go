package models

import (
	"strings"
	"time"

	"wayfare/utils"
)

// Review references exactly one tour and one user. The (tourid, userid) pair
// carries a unique index so a user can review a tour at most once.
type Review struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Review    string    `bson:"review" json:"review"`
	Rating    float64   `bson:"rating" json:"rating"`
	TourID    string    `bson:"tourid" json:"tour"`
	UserID    string    `bson:"userid" json:"user"`
	CreatedAt time.Time `bson:"createdat" json:"createdAt"`
	Rev       int       `bson:"__v" json:"-"`
}

func (r *Review) EnsureID() {
	if r.ID == "" {
		r.ID = "r" + utils.GenerateRandomString(12)
	}
}

func (r *Review) Normalize() {
	r.Review = strings.TrimSpace(r.Review)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
}

func (r *Review) Validate() error {
	var problems []string
	if r.Review == "" {
		problems = append(problems, "a review must be provided")
	}
	if r.Rating < 1 || r.Rating > 5 {
		problems = append(problems, "rating must be between 1.0 and 5.0")
	}
	if r.TourID == "" {
		problems = append(problems, "a review must belong to a tour")
	}
	if r.UserID == "" {
		problems = append(problems, "a review must belong to a user")
	}
	if len(problems) > 0 {
		return validationError(problems)
	}
	return nil
}
