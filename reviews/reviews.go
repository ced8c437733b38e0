package reviews

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"wayfare/factory"
	"wayfare/middleware"
	"wayfare/models"
	"wayfare/store"
	"wayfare/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const recalcTimeout = 5 * time.Second

type Handlers struct {
	Reviews *store.Mongo[models.Review]
	Tours   *store.Mongo[models.Tour]
	Dev     bool
}

// tourScope narrows a listing to one tour when the route is nested under
// /tours/:id/reviews.
func tourScope(_ *http.Request, ps httprouter.Params) bson.M {
	if tourID := ps.ByName("id"); tourID != "" {
		return bson.M{"tourid": tourID}
	}
	return nil
}

// seed fills the tour reference from the nested route and the author from the
// signed-in principal, so clients cannot review on someone else's behalf.
func seed(r *http.Request, ps httprouter.Params, doc *models.Review) {
	if doc.TourID == "" {
		doc.TourID = ps.ByName("id")
	}
	if principal, ok := middleware.PrincipalFrom(r.Context()); ok {
		doc.UserID = principal.ID
	}
}

// ratingStats is one row of the per-tour rating aggregation.
type ratingStats struct {
	NRating   int     `bson:"nRating"`
	AvgRating float64 `bson:"avgRating"`
}

// ratingsSummary reduces the aggregation output to the values written back
// onto the tour. No surviving reviews resets the tour to its defaults.
func ratingsSummary(results []ratingStats) (quantity int, average float64) {
	if len(results) == 0 {
		return models.DefaultRatingsQuantity, models.DefaultRatingsAverage
	}
	return results[0].NRating, utils.Round1(results[0].AvgRating)
}

// recalcRatings recomputes the parent tour's rating summary from all surviving
// reviews. With none left the tour falls back to the defaults. Writes are not
// serialized against concurrent review traffic; the last recompute wins.
func (h *Handlers) recalcRatings(ctx context.Context, review *models.Review) {
	ctx, cancel := context.WithTimeout(ctx, recalcTimeout)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{"tourid": review.TourID}},
		{"$group": bson.M{
			"_id":       "$tourid",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}},
	}
	cursor, err := h.Reviews.Collection().Aggregate(ctx, pipeline)
	if err != nil {
		slog.Error("rating recompute failed", "tour", review.TourID, "err", err)
		return
	}
	var results []ratingStats
	if err := cursor.All(ctx, &results); err != nil {
		slog.Error("rating recompute decode failed", "tour", review.TourID, "err", err)
		return
	}

	quantity, average := ratingsSummary(results)

	_, err = h.Tours.Collection().UpdateOne(ctx, bson.M{"_id": review.TourID}, bson.M{
		"$set": bson.M{"ratingsquantity": quantity, "ratingsaverage": average},
	})
	if err != nil {
		slog.Error("tour rating update failed", "tour", review.TourID, "err", err)
	}
}

func (h *Handlers) List() httprouter.Handle {
	return factory.GetAll("reviews", h.Reviews, h.Dev, tourScope)
}

func (h *Handlers) Get() httprouter.Handle {
	return factory.GetOne("review", h.Reviews, h.Dev, nil)
}

func (h *Handlers) Create() httprouter.Handle {
	return factory.CreateOne("review", h.Reviews, h.Dev, seed, h.recalcRatings)
}

func (h *Handlers) Update() httprouter.Handle {
	return factory.UpdateOne("review", h.Reviews, h.Dev, h.recalcRatings)
}

func (h *Handlers) Delete() httprouter.Handle {
	return factory.DeleteOne("review", h.Reviews, h.Dev, h.recalcRatings)
}
