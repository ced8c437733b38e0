package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the persistence capability the generic handlers are parameterized
// over. Each entity type gets one implementation; handlers depend only on
// this interface.
type Store[T any] interface {
	Create(ctx context.Context, doc *T) error
	FindByID(ctx context.Context, id string) (*T, error)
	FindAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]T, error)
	UpdateByID(ctx context.Context, id string, update bson.M) (*T, error)
	DeleteByID(ctx context.Context, id string) error
}

// Lifecycle hooks. The Mongo store runs these as explicit steps around every
// persistence event instead of hiding them behind driver callbacks.

// Identifiable lets a document mint its own ID before first insert.
type Identifiable interface{ EnsureID() }

// Normalizer is the pre-save step (slug derivation, trimming, defaults).
// It runs on every create and update.
type Normalizer interface{ Normalize() }

// Validator is full schema validation, applied on create and re-applied on
// update against the post-update document.
type Validator interface{ Validate() error }
