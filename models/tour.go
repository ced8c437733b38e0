package models

import (
	"fmt"
	"strings"
	"time"

	"wayfare/utils"
)

const (
	DefaultRatingsAverage  = 4.5
	DefaultRatingsQuantity = 0
)

type Tour struct {
	ID              string      `bson:"_id,omitempty" json:"id"`
	Name            string      `bson:"name" json:"name"`
	Slug            string      `bson:"slug" json:"slug"`
	Duration        int         `bson:"duration" json:"duration"`
	MaxGroupSize    int         `bson:"maxgroupsize" json:"maxGroupSize"`
	Difficulty      string      `bson:"difficulty" json:"difficulty"`
	Price           float64     `bson:"price" json:"price"`
	PriceDiscount   float64     `bson:"pricediscount,omitempty" json:"priceDiscount,omitempty"`
	Summary         string      `bson:"summary" json:"summary"`
	Description     string      `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string      `bson:"imagecover" json:"imageCover"`
	Images          []string    `bson:"images,omitempty" json:"images,omitempty"`
	StartDates      []time.Time `bson:"startdates,omitempty" json:"startDates,omitempty"`
	RatingsAverage  float64     `bson:"ratingsaverage" json:"ratingsAverage"`
	RatingsQuantity int         `bson:"ratingsquantity" json:"ratingsQuantity"`
	SecretTour      bool        `bson:"secrettour" json:"secretTour,omitempty"`
	StartLocation   GeoPoint    `bson:"startlocation" json:"startLocation"`
	Locations       []Location  `bson:"locations,omitempty" json:"locations,omitempty"`
	Guides          []string    `bson:"guides,omitempty" json:"guides,omitempty"`
	CreatedAt       time.Time   `bson:"createdat" json:"createdAt"`
	Rev             int         `bson:"__v" json:"-"`
}

// EnsureID assigns a fresh ID when none is set.
func (t *Tour) EnsureID() {
	if t.ID == "" {
		t.ID = "t" + utils.GenerateRandomString(12)
	}
}

// Normalize is the pre-save step: trims the name, derives the slug from it,
// rounds the rating to one decimal, and defaults the timestamps and rating
// fields on first save.
func (t *Tour) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Slug = utils.Slugify(t.Name)
	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	t.RatingsAverage = utils.Round1(t.RatingsAverage)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
}

// Validate applies full schema validation, used on create and on update.
func (t *Tour) Validate() error {
	var problems []string
	name := strings.TrimSpace(t.Name)
	if name == "" {
		problems = append(problems, "a tour must have a name")
	} else if len(name) < 10 || len(name) > 40 {
		problems = append(problems, "a tour name must be between 10 and 40 characters")
	}
	if t.Duration <= 0 {
		problems = append(problems, "a tour must have a duration")
	}
	if t.MaxGroupSize <= 0 {
		problems = append(problems, "a tour must have a group size")
	}
	switch t.Difficulty {
	case "easy", "medium", "difficult":
	default:
		problems = append(problems, "difficulty is either: easy, medium, difficult")
	}
	if t.Price <= 0 {
		problems = append(problems, "a tour must have a price")
	}
	if t.PriceDiscount != 0 && t.PriceDiscount >= t.Price {
		problems = append(problems, fmt.Sprintf("discount price (%.2f) must be below regular price", t.PriceDiscount))
	}
	if strings.TrimSpace(t.Summary) == "" {
		problems = append(problems, "a tour must have a summary")
	}
	if t.RatingsAverage < 1 || t.RatingsAverage > 5 {
		problems = append(problems, "rating must be between 1.0 and 5.0")
	}
	if len(problems) > 0 {
		return validationError(problems)
	}
	return nil
}
