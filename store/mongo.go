package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the collection-backed Store. listScope is merged into every read
// filter so soft-deleted users and secret tours stay out of listings and
// single fetches alike, without every caller remembering to exclude them.
type Mongo[T any] struct {
	coll      *mongo.Collection
	listScope bson.M
}

func NewMongo[T any](coll *mongo.Collection, listScope bson.M) *Mongo[T] {
	return &Mongo[T]{coll: coll, listScope: listScope}
}

// Collection exposes the raw collection for aggregations and one-off queries
// that fall outside the generic operations.
func (m *Mongo[T]) Collection() *mongo.Collection { return m.coll }

func (m *Mongo[T]) Create(ctx context.Context, doc *T) error {
	if id, ok := any(doc).(Identifiable); ok {
		id.EnsureID()
	}
	if n, ok := any(doc).(Normalizer); ok {
		n.Normalize()
	}
	if v, ok := any(doc).(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	_, err := m.coll.InsertOne(ctx, doc)
	return err
}

// scoped overlays the list scope on a filter. Explicit filter keys win, so a
// caller naming the scoped field reaches scoped-out documents.
func (m *Mongo[T]) scoped(filter bson.M) bson.M {
	if filter == nil {
		filter = bson.M{}
	}
	for k, v := range m.listScope {
		if _, taken := filter[k]; !taken {
			filter[k] = v
		}
	}
	return filter
}

func (m *Mongo[T]) FindByID(ctx context.Context, id string) (*T, error) {
	var doc T
	if err := m.coll.FindOne(ctx, m.scoped(bson.M{"_id": id})).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindOne looks a document up by an arbitrary filter (login by email, tour by
// slug). Not part of the generic Store surface.
func (m *Mongo[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var doc T
	if err := m.coll.FindOne(ctx, m.scoped(filter)).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *Mongo[T]) FindAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cur, err := m.coll.Find(ctx, m.scoped(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := []T{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateByID re-validates the post-update document before anything is
// written, then replaces the stored document with the merged state. The
// revision field bumps on every update.
func (m *Mongo[T]) UpdateByID(ctx context.Context, id string, update bson.M) (*T, error) {
	current, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged, err := ApplyPatch(current, update)
	if err != nil {
		return nil, err
	}
	if n, ok := any(merged).(Normalizer); ok {
		n.Normalize()
	}
	if v, ok := any(merged).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	res, err := m.coll.ReplaceOne(ctx, bson.M{"_id": id}, merged)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return merged, nil
}

func (m *Mongo[T]) DeleteByID(ctx context.Context, id string) error {
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ApplyPatch merges a flat field update into a document via a bson round
// trip and increments the internal revision counter.
func ApplyPatch[T any](current *T, update bson.M) (*T, error) {
	raw, err := bson.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("marshal current: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal current: %w", err)
	}

	for k, v := range update {
		if k == "_id" || k == "__v" {
			continue
		}
		doc[k] = v
	}
	doc["__v"] = revOf(doc) + 1

	raw, err = bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal merged: %w", err)
	}
	var merged T
	if err := bson.Unmarshal(raw, &merged); err != nil {
		return nil, fmt.Errorf("unmarshal merged: %w", err)
	}
	return &merged, nil
}

func revOf(doc bson.M) int {
	switch v := doc["__v"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
