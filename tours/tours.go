package tours

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"wayfare/apperror"
	"wayfare/factory"
	"wayfare/models"
	"wayfare/rdx"
	"wayfare/store"
	"wayfare/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	opTimeout   = 10 * time.Second
	statsKey    = "tours:stats"
	statsTTL    = 10 * time.Minute
	earthMiles  = 3963.2
	earthKm     = 6378.1
	metersPerMi = 0.000621371
	metersPerKm = 0.001
)

type Handlers struct {
	Tours     *store.Mongo[models.Tour]
	Users     *store.Mongo[models.User]
	Reviews   *store.Mongo[models.Review]
	Cache     *rdx.Cache
	UploadDir string
	Dev       bool
}

// tourDetail is the single-tour payload: the document plus its guides and
// reviews resolved into full objects.
type tourDetail struct {
	models.Tour
	Guides  []models.User   `json:"guides,omitempty"`
	Reviews []models.Review `json:"reviews"`
}

func (h *Handlers) expand(ctx context.Context, tour *models.Tour) (any, error) {
	detail := tourDetail{Tour: *tour, Reviews: []models.Review{}}

	if len(tour.Guides) > 0 {
		guides, err := h.Users.FindAll(ctx, bson.M{"_id": bson.M{"$in": tour.Guides}}, nil)
		if err != nil {
			return nil, err
		}
		detail.Guides = guides
	}

	reviews, err := h.Reviews.FindAll(ctx, bson.M{"tourid": tour.ID}, nil)
	if err != nil {
		return nil, err
	}
	detail.Reviews = reviews
	return detail, nil
}

func (h *Handlers) dropStatsCache(ctx context.Context, _ *models.Tour) {
	if err := h.Cache.Del(ctx, statsKey); err != nil {
		slog.Warn("stats cache invalidation failed", "err", err)
	}
}

func (h *Handlers) List() httprouter.Handle {
	return factory.GetAll("tours", h.Tours, h.Dev, nil)
}

func (h *Handlers) Get() httprouter.Handle {
	return factory.GetOne("tour", h.Tours, h.Dev, h.expand)
}

func (h *Handlers) Create() httprouter.Handle {
	return factory.CreateOne("tour", h.Tours, h.Dev, nil, h.dropStatsCache)
}

func (h *Handlers) Update() httprouter.Handle {
	return factory.UpdateOne("tour", h.Tours, h.Dev, h.dropStatsCache)
}

func (h *Handlers) Delete() httprouter.Handle {
	return factory.DeleteOne("tour", h.Tours, h.Dev, h.dropStatsCache)
}

// AliasTopTours rewrites the query string to the canonical "top 5 cheap"
// listing before handing off to the regular list handler.
func (h *Handlers) AliasTopTours(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		q := r.URL.Query()
		q.Set("limit", "5")
		q.Set("sort", "-ratingsaverage,price")
		q.Set("fields", "name,price,ratingsaverage,summary,difficulty")
		r.URL.RawQuery = q.Encode()
		next(w, r, ps)
	}
}

// Stats groups well-rated tours by difficulty. The result changes rarely, so
// it sits in Redis for a few minutes and is dropped on any tour mutation.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	var stats []bson.M
	if err := h.Cache.GetJSON(ctx, statsKey, &stats); err == nil {
		utils.Success(w, http.StatusOK, utils.M{"stats": stats})
		return
	}

	pipeline := []bson.M{
		{"$match": bson.M{"ratingsaverage": bson.M{"$gte": 4.5}}},
		{"$group": bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsquantity"},
			"avgRating":  bson.M{"$avg": "$ratingsaverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}},
		{"$sort": bson.M{"avgPrice": 1}},
	}

	cursor, err := h.Tours.Collection().Aggregate(ctx, pipeline)
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	stats = []bson.M{}
	if err := cursor.All(ctx, &stats); err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}

	if err := h.Cache.SetJSON(ctx, statsKey, stats, statsTTL); err != nil {
		slog.Warn("stats cache write failed", "err", err)
	}
	utils.Success(w, http.StatusOK, utils.M{"stats": stats})
}

// MonthlyPlan counts tour starts per month of the given year, busiest month
// first.
func (h *Handlers) MonthlyPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	year, err := strconv.Atoi(ps.ByName("year"))
	if err != nil {
		apperror.Respond(w, apperror.BadRequest("Please provide a valid year"), h.Dev)
		return
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	pipeline := []bson.M{
		{"$unwind": "$startdates"},
		{"$match": bson.M{"startdates": bson.M{"$gte": from, "$lt": to}}},
		{"$group": bson.M{
			"_id":           bson.M{"$month": "$startdates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}},
		{"$addFields": bson.M{"month": "$_id"}},
		{"$project": bson.M{"_id": 0}},
		{"$sort": bson.M{"numTourStarts": -1}},
		{"$limit": 12},
	}

	cursor, err := h.Tours.Collection().Aggregate(ctx, pipeline)
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	plan := []bson.M{}
	if err := cursor.All(ctx, &plan); err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	utils.Success(w, http.StatusOK, utils.M{"plan": plan})
}

// ToursWithin lists tours whose start location falls inside a sphere of the
// given radius around a center point.
// Route shape: /tours-within/:distance/center/:latlng/unit/:unit
func (h *Handlers) ToursWithin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	lat, lng, ok := utils.ParseLatLng(ps.ByName("latlng"))
	if !ok {
		apperror.Respond(w, apperror.BadRequest("Please provide latitude and longitude in the format lat,lng"), h.Dev)
		return
	}
	distance, err := strconv.ParseFloat(ps.ByName("distance"), 64)
	if err != nil || distance < 0 {
		apperror.Respond(w, apperror.BadRequest("Please provide a valid distance"), h.Dev)
		return
	}

	// $centerSphere wants the radius in radians.
	radius := distance / earthKm
	if ps.ByName("unit") == "mi" {
		radius = distance / earthMiles
	}

	tours, err := h.Tours.FindAll(ctx, bson.M{
		"startlocation": bson.M{
			"$geoWithin": bson.M{"$centerSphere": []any{[]float64{lng, lat}, radius}},
		},
	}, nil)
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	utils.SuccessList(w, http.StatusOK, len(tours), tours)
}

// Distances returns every tour's distance from a point, nearest first.
// Route shape: /distances/:latlng/unit/:unit
func (h *Handlers) Distances(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	lat, lng, ok := utils.ParseLatLng(ps.ByName("latlng"))
	if !ok {
		apperror.Respond(w, apperror.BadRequest("Please provide latitude and longitude in the format lat,lng"), h.Dev)
		return
	}

	multiplier := metersPerKm
	if ps.ByName("unit") == "mi" {
		multiplier = metersPerMi
	}

	// $geoNear must be the first stage and needs the 2dsphere index on
	// startlocation.
	pipeline := []bson.M{
		{"$geoNear": bson.M{
			"near":               models.NewGeoPoint(lng, lat),
			"distanceField":      "distance",
			"distanceMultiplier": multiplier,
		}},
		{"$project": bson.M{"distance": 1, "name": 1}},
	}

	cursor, err := h.Tours.Collection().Aggregate(ctx, pipeline)
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	distances := []bson.M{}
	if err := cursor.All(ctx, &distances); err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	utils.Success(w, http.StatusOK, utils.M{"distances": distances})
}
