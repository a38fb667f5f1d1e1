package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/biolink/pkg/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names
const (
	UsersCollection         = "users"
	MerchantsCollection     = "merchants"
	OffersCollection        = "offers"
	TrackersCollection      = "trackers"
	SubscriptionsCollection = "subscriptions"
)

// Store is the MongoDB-backed implementation of the biolink persistence
// interfaces and of analytics.EventSource.
type Store struct {
	db  *mongo.Database
	now func() time.Time
}

// Connect dials MongoDB, verifies the primary is reachable and returns a Store
// bound to cfg.MongoDatabase.
func Connect(ctx context.Context, cfg storage.Config) (*Store, error) {
	timeout := cfg.MongoTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if cfg.MongoMaxPool > 0 {
		opts.SetMaxPoolSize(cfg.MongoMaxPool)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return New(client.Database(cfg.MongoDatabase)), nil
}

// New wraps an already connected database.
func New(db *mongo.Database) *Store {
	return &Store{db: db, now: time.Now}
}

// Ping checks MongoDB connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client
func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the dashboard queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "referredBy", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		MerchantsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
		OffersCollection: {
			{Keys: bson.D{{Key: "merchantId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		TrackersCollection: {
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "merchantId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		SubscriptionsCollection: {
			{Keys: bson.D{{Key: "merchantId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "stripeSubscriptionId", Value: 1}}},
			{Keys: bson.D{{Key: "stripeCustomerId", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}
