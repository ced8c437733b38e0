// Package factory provides the five generic resource operations. Each
// operation is parameterized only by a store.Store and produces the uniform
// response envelope with uniform 404 semantics, so the per-resource handler
// packages stay free of CRUD boilerplate.
package factory

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"

	"wayfare/apperror"
	"wayfare/query"
	"wayfare/store"
	"wayfare/utils"
)

const opTimeout = 5 * time.Second

// SeedFunc pre-fills a document from the request before create (nested-route
// parent IDs, the authenticated principal).
type SeedFunc[T any] func(r *http.Request, ps httprouter.Params, doc *T)

// ScopeFunc narrows a list query from route context, e.g. reviews scoped to
// the parent tour of a nested route.
type ScopeFunc func(r *http.Request, ps httprouter.Params) bson.M

// ExpandFunc attaches related data to a fetched document (a tour's reviews).
// Returning nil payload keeps the plain document.
type ExpandFunc[T any] func(ctx context.Context, doc *T) (any, error)

// AfterFunc runs after a successful write, for derived-state recomputation.
type AfterFunc[T any] func(ctx context.Context, doc *T)

// CreateOne decodes the full entity from the body, runs the store's lifecycle
// hooks (full schema validation applies), and answers 201 with the created
// document.
func CreateOne[T any](resource string, s store.Store[T], dev bool, seed SeedFunc[T], after AfterFunc[T]) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
		defer cancel()

		var doc T
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			apperror.Respond(w, apperror.BadRequest("Invalid input"), dev)
			return
		}
		if seed != nil {
			seed(r, ps, &doc)
		}
		if err := s.Create(ctx, &doc); err != nil {
			apperror.Respond(w, apperror.FromMongo(err, resource), dev)
			return
		}
		if after != nil {
			after(ctx, &doc)
		}
		utils.Success(w, http.StatusCreated, &doc)
	}
}

// GetOne fetches by identifier, optionally expanding a relation. A missing
// document is a NotFound condition, never a generic failure.
func GetOne[T any](resource string, s store.Store[T], dev bool, expand ExpandFunc[T]) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
		defer cancel()

		doc, err := s.FindByID(ctx, ps.ByName("id"))
		if err != nil {
			apperror.Respond(w, apperror.FromMongo(err, resource), dev)
			return
		}

		var payload any = doc
		if expand != nil {
			expanded, err := expand(ctx, doc)
			if err != nil {
				apperror.Respond(w, err, dev)
				return
			}
			if expanded != nil {
				payload = expanded
			}
		}
		utils.Success(w, http.StatusOK, payload)
	}
}

// GetAll runs the full feature chain over the (possibly scoped) base query.
// Zero matches is a valid success response.
func GetAll[T any](resource string, s store.Store[T], dev bool, scope ScopeFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
		defer cancel()

		features := query.New(r.URL.Query())
		if scope != nil {
			if base := scope(r, ps); base != nil {
				features.WithBase(base)
			}
		}
		features.Filter().SortBy().LimitFields().Paginate()

		docs, err := s.FindAll(ctx, features.Match, features.FindOptions())
		if err != nil {
			apperror.Respond(w, apperror.FromMongo(err, resource), dev)
			return
		}
		utils.SuccessList(w, http.StatusOK, len(docs), docs)
	}
}

// UpdateOne applies a flat field update with schema re-validation and answers
// with the post-update document.
func UpdateOne[T any](resource string, s store.Store[T], dev bool, after AfterFunc[T]) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
		defer cancel()

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			apperror.Respond(w, apperror.BadRequest("Invalid input"), dev)
			return
		}

		doc, err := s.UpdateByID(ctx, ps.ByName("id"), normalizeKeys(body))
		if err != nil {
			apperror.Respond(w, apperror.FromMongo(err, resource), dev)
			return
		}
		if after != nil {
			after(ctx, doc)
		}
		utils.Success(w, http.StatusOK, doc)
	}
}

// DeleteOne removes by identifier and answers 204 with no body; nothing about
// the deleted document leaks back.
func DeleteOne[T any](resource string, s store.Store[T], dev bool, after AfterFunc[T]) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
		defer cancel()

		id := ps.ByName("id")

		var doc *T
		if after != nil {
			// the recompute hook needs the parent references of the
			// document about to disappear
			found, err := s.FindByID(ctx, id)
			if err != nil {
				apperror.Respond(w, apperror.FromMongo(err, resource), dev)
				return
			}
			doc = found
		}

		if err := s.DeleteByID(ctx, id); err != nil {
			apperror.Respond(w, apperror.FromMongo(err, resource), dev)
			return
		}
		if after != nil {
			after(ctx, doc)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// normalizeKeys lowercases incoming JSON field names to the stored bson
// naming, and drops fields clients may never patch directly.
func normalizeKeys(body map[string]any) bson.M {
	update := bson.M{}
	for k, v := range body {
		k = strings.ToLower(k)
		switch k {
		case "password", "passwordconfirm", "passwordchangedat", "passwordresettoken", "passwordresetexpires":
			continue
		}
		update[k] = v
	}
	return update
}
