package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/biolink/pkg/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultRole is assigned to accounts created through OTP login.
const DefaultRole = "user"

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Email      string             `bson:"email"`
	Name       string             `bson:"name,omitempty"`
	Role       string             `bson:"role"`
	ReferredBy string             `bson:"referredBy,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

func (d userDoc) toUser() *storage.User {
	return &storage.User{
		ID:         d.ID.Hex(),
		Email:      d.Email,
		Name:       d.Name,
		Role:       d.Role,
		ReferredBy: d.ReferredBy,
		CreatedAt:  d.CreatedAt,
	}
}

type merchantDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	UserID           string             `bson:"userId"`
	Name             string             `bson:"name"`
	Email            string             `bson:"email"`
	StripeCustomerID string             `bson:"stripeCustomerId,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt"`
}

func (d merchantDoc) toMerchant() *storage.Merchant {
	return &storage.Merchant{
		ID:               d.ID.Hex(),
		UserID:           d.UserID,
		Name:             d.Name,
		Email:            d.Email,
		StripeCustomerID: d.StripeCustomerID,
		CreatedAt:        d.CreatedAt,
	}
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpsertUserByEmail returns the user with email, creating it on first login.
func (s *Store) UpsertUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	email = NormalizeEmail(email)
	update := bson.M{"$setOnInsert": bson.M{
		"email":     email,
		"role":      DefaultRole,
		"createdAt": s.now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDoc
	err := s.collection(UsersCollection).FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user %s: %w", email, err)
	}
	return doc.toUser(), nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*storage.User, error) {
	var doc userDoc
	if err := s.findByID(ctx, UsersCollection, id, &doc); err != nil {
		return nil, err
	}
	return doc.toUser(), nil
}

// GetMerchant retrieves a merchant by ID
func (s *Store) GetMerchant(ctx context.Context, id string) (*storage.Merchant, error) {
	var doc merchantDoc
	if err := s.findByID(ctx, MerchantsCollection, id, &doc); err != nil {
		return nil, err
	}
	return doc.toMerchant(), nil
}

// MerchantByUserID returns the merchant account owned by a user.
func (s *Store) MerchantByUserID(ctx context.Context, userID string) (*storage.Merchant, error) {
	var doc merchantDoc
	err := s.collection(MerchantsCollection).FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant for user %s: %w", userID, err)
	}
	return doc.toMerchant(), nil
}

// ListMerchants returns every merchant, oldest first.
func (s *Store) ListMerchants(ctx context.Context) ([]*storage.Merchant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.collection(MerchantsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchants: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []merchantDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode merchants: %w", err)
	}

	merchants := make([]*storage.Merchant, len(docs))
	for i, d := range docs {
		merchants[i] = d.toMerchant()
	}
	return merchants, nil
}

// SetStripeCustomerID records the Stripe customer created for a merchant.
func (s *Store) SetStripeCustomerID(ctx context.Context, merchantID, customerID string) error {
	oid, err := primitive.ObjectIDFromHex(merchantID)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := s.collection(MerchantsCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"stripeCustomerId": customerID}},
	)
	if err != nil {
		return fmt.Errorf("failed to update merchant %s: %w", merchantID, err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) findByID(ctx context.Context, coll, id string, out interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrNotFound
	}

	err = s.collection(coll).FindOne(ctx, bson.M{"_id": oid}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s %s: %w", coll, id, err)
	}
	return nil
}
