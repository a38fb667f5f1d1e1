package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/biolink/pkg/billing"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SaveSubscription upserts the merchant's subscription document.
func (s *Store) SaveSubscription(ctx context.Context, sub *billing.Subscription) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection(SubscriptionsCollection).ReplaceOne(ctx, bson.M{"merchantId": sub.MerchantID}, sub, opts)
	if err != nil {
		return fmt.Errorf("failed to save subscription for merchant %s: %w", sub.MerchantID, err)
	}
	return nil
}

// GetSubscriptionByMerchant retrieves a subscription by merchant ID
func (s *Store) GetSubscriptionByMerchant(ctx context.Context, merchantID string) (*billing.Subscription, error) {
	return s.findSubscription(ctx, bson.M{"merchantId": merchantID})
}

// GetSubscriptionByStripeID retrieves a subscription by Stripe subscription ID
func (s *Store) GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*billing.Subscription, error) {
	return s.findSubscription(ctx, bson.M{"stripeSubscriptionId": stripeSubscriptionID})
}

// GetSubscriptionByCustomer retrieves a subscription by Stripe customer ID
func (s *Store) GetSubscriptionByCustomer(ctx context.Context, customerID string) (*billing.Subscription, error) {
	return s.findSubscription(ctx, bson.M{"stripeCustomerId": customerID})
}

func (s *Store) findSubscription(ctx context.Context, filter bson.M) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := s.collection(SubscriptionsCollection).FindOne(ctx, filter).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, billing.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}
