package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DB bundles the Mongo client and the collections the app uses. It is
// constructed once at startup and injected where needed.
type DB struct {
	Client *mongo.Client

	Tours    *mongo.Collection
	Users    *mongo.Collection
	Reviews  *mongo.Collection
	Bookings *mongo.Collection
	Sessions *mongo.Collection
}

// Connect opens the Mongo connection and pings it before returning.
func Connect(ctx context.Context, uri, name string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := client.Database(name)
	return &DB{
		Client:   client,
		Tours:    database.Collection("tours"),
		Users:    database.Collection("users"),
		Reviews:  database.Collection("reviews"),
		Bookings: database.Collection("bookings"),
		Sessions: database.Collection("checkout_sessions"),
	}, nil
}

// EnsureIndexes creates the schema-level constraints: unique tour name and
// slug, unique user email, one review per (tour, user), the geo index for
// radius searches, the compound read index, and a TTL on checkout sessions.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	_, err := d.Tours.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "slug", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsaverage", Value: -1}}},
		{Keys: bson.D{{Key: "startlocation", Value: "2dsphere"}}},
	})
	if err != nil {
		return fmt.Errorf("tour indexes: %w", err)
	}

	_, err = d.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	_, err = d.Reviews.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tourid", Value: 1}, {Key: "userid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("review indexes: %w", err)
	}

	_, err = d.Sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresat", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("session indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}
