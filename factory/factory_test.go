package factory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wayfare/models"
	"wayfare/store"
)

// fakeReviews is an in-memory Store[models.Review] exercising the same hook
// sequence as the Mongo store.
type fakeReviews struct {
	order []string
	docs  map[string]models.Review
}

func newFakeReviews(seed ...models.Review) *fakeReviews {
	f := &fakeReviews{docs: map[string]models.Review{}}
	for _, r := range seed {
		f.order = append(f.order, r.ID)
		f.docs[r.ID] = r
	}
	return f
}

func (f *fakeReviews) Create(_ context.Context, doc *models.Review) error {
	doc.EnsureID()
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return err
	}
	f.order = append(f.order, doc.ID)
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeReviews) FindByID(_ context.Context, id string) (*models.Review, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &doc, nil
}

func (f *fakeReviews) FindAll(_ context.Context, filter bson.M, opts *options.FindOptions) ([]models.Review, error) {
	matched := []models.Review{}
	for _, id := range f.order {
		doc := f.docs[id]
		if tour, ok := filter["tourid"]; ok && doc.TourID != tour {
			continue
		}
		matched = append(matched, doc)
	}
	if opts != nil && opts.Skip != nil {
		if int(*opts.Skip) >= len(matched) {
			return []models.Review{}, nil
		}
		matched = matched[*opts.Skip:]
	}
	if opts != nil && opts.Limit != nil && int(*opts.Limit) < len(matched) {
		matched = matched[:*opts.Limit]
	}
	return matched, nil
}

func (f *fakeReviews) UpdateByID(_ context.Context, id string, update bson.M) (*models.Review, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	merged, err := store.ApplyPatch(&doc, update)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	f.docs[id] = *merged
	return merged, nil
}

func (f *fakeReviews) DeleteByID(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(f.docs, id)
	return nil
}

func seedReviews(n int) []models.Review {
	out := make([]models.Review, n)
	for i := range out {
		out[i] = models.Review{
			ID:     "r" + string(rune('0'+i)),
			Review: "a perfectly fine trip",
			Rating: 4,
			TourID: "t1",
			UserID: "u" + string(rune('0'+i)),
		}
	}
	return out
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestGetOneMissingIsNotFound(t *testing.T) {
	h := GetOne[models.Review]("review", newFakeReviews(), false, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reviews/nope", nil),
		httprouter.Params{{Key: "id", Value: "nope"}})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["status"] != "fail" {
		t.Errorf("status = %v, want fail", body["status"])
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "No review found") {
		t.Errorf("message = %q", msg)
	}
}

func TestUpdateOneMissingIsNotFound(t *testing.T) {
	h := UpdateOne[models.Review]("review", newFakeReviews(), false, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/reviews/nope", strings.NewReader(`{"rating":5}`)),
		httprouter.Params{{Key: "id", Value: "nope"}})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestDeleteOneMissingIsNotFound(t *testing.T) {
	h := DeleteOne[models.Review]("review", newFakeReviews(), false, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/nope", nil),
		httprouter.Params{{Key: "id", Value: "nope"}})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestCreateOneAnswers201WithDocument(t *testing.T) {
	fake := newFakeReviews()
	h := CreateOne[models.Review]("review", fake, false,
		func(_ *http.Request, ps httprouter.Params, doc *models.Review) {
			doc.TourID = ps.ByName("id")
			doc.UserID = "u1"
		}, nil)

	payload := `{"review":"wonderful guides, hard climbs","rating":5}`
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tours/all/t1/reviews", strings.NewReader(payload)),
		httprouter.Params{{Key: "id", Value: "t1"}})

	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, want 201: %s", rec.Code, rec.Body)
	}
	body := decodeEnvelope(t, rec)
	if body["status"] != "success" {
		t.Errorf("status = %v", body["status"])
	}
	data, _ := body["data"].(map[string]any)
	if data["tour"] != "t1" {
		t.Errorf("tour = %v, want t1 (seeded from route)", data["tour"])
	}
	if len(fake.docs) != 1 {
		t.Errorf("stored %d docs, want 1", len(fake.docs))
	}
}

func TestCreateOneInvalidBodyIs400(t *testing.T) {
	h := CreateOne[models.Review]("review", newFakeReviews(), false, nil, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader("{not json")), nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestGetAllPaginates(t *testing.T) {
	fake := newFakeReviews(seedReviews(5)...)
	h := GetAll[models.Review]("review", fake, false, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reviews?page=2&limit=2", nil), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["results"] != 2.0 {
		t.Errorf("results = %v, want 2", body["results"])
	}
	docs, _ := body["data"].([]any)
	first, _ := docs[0].(map[string]any)
	if first["user"] != "u2" {
		t.Errorf("first doc on page 2 = %v, want u2", first["user"])
	}
}

func TestGetAllPastTheEndIsEmptySuccess(t *testing.T) {
	fake := newFakeReviews(seedReviews(3)...)
	h := GetAll[models.Review]("review", fake, false, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reviews?page=99&limit=10", nil), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["results"] != 0.0 {
		t.Errorf("results = %v, want 0", body["results"])
	}
}

func TestGetAllNestedScope(t *testing.T) {
	other := models.Review{ID: "rx", Review: "different tour entirely", Rating: 3, TourID: "t2", UserID: "u9"}
	fake := newFakeReviews(append(seedReviews(2), other)...)

	h := GetAll[models.Review]("review", fake, false,
		func(_ *http.Request, ps httprouter.Params) bson.M {
			if id := ps.ByName("id"); id != "" {
				return bson.M{"tourid": id}
			}
			return nil
		})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours/all/t1/reviews", nil),
		httprouter.Params{{Key: "id", Value: "t1"}})

	body := decodeEnvelope(t, rec)
	if body["results"] != 2.0 {
		t.Errorf("results = %v, want 2 (t2 review excluded)", body["results"])
	}
}

func TestDeleteOneAnswers204AndRunsAfterHook(t *testing.T) {
	fake := newFakeReviews(seedReviews(1)...)

	var recomputedFor string
	h := DeleteOne[models.Review]("review", fake, false,
		func(_ context.Context, doc *models.Review) { recomputedFor = doc.TourID })

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/r0", nil),
		httprouter.Params{{Key: "id", Value: "r0"}})

	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body)
	}
	if recomputedFor != "t1" {
		t.Errorf("after hook got tour %q, want t1", recomputedFor)
	}
}

func TestUpdateOneReturnsPostUpdateDocument(t *testing.T) {
	fake := newFakeReviews(seedReviews(1)...)
	h := UpdateOne[models.Review]("review", fake, false, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/reviews/r0", strings.NewReader(`{"rating":2}`)),
		httprouter.Params{{Key: "id", Value: "r0"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if data["rating"] != 2.0 {
		t.Errorf("rating = %v, want 2", data["rating"])
	}
}

func TestUpdateOneRevalidates(t *testing.T) {
	fake := newFakeReviews(seedReviews(1)...)
	h := UpdateOne[models.Review]("review", fake, false, nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/reviews/r0", strings.NewReader(`{"rating":11}`)),
		httprouter.Params{{Key: "id", Value: "r0"}})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400: %s", rec.Code, rec.Body)
	}
}
