package analytics

import (
	"context"
	"time"
)

// TimedEvent is a single dated, weighted occurrence read from storage.
// Signups carry Value 1; earnings carry the amount earned.
type TimedEvent struct {
	OccurredAt time.Time
	Value      float64
	OwnerID    string
}

// EventKind names the collections the graphs draw from.
type EventKind string

const (
	KindUserSignup     EventKind = "user_signup"
	KindMerchantSignup EventKind = "merchant_signup"
	KindOfferCreated   EventKind = "offer_created"
	KindClick          EventKind = "click"
	KindEarning        EventKind = "earning"
)

// OwnerKind selects the directory used to resolve leaderboard names.
type OwnerKind string

const (
	OwnerUser     OwnerKind = "user"
	OwnerMerchant OwnerKind = "merchant"
)

// EventQuery filters events of one kind. A zero From or To leaves that side open.
//
// MerchantID scopes the query to one merchant. The OwnerID of returned click
// and earning events is the merchant for unscoped queries and the affiliate
// user for merchant-scoped ones.
type EventQuery struct {
	Kind       EventKind
	MerchantID string
	From       time.Time
	To         time.Time
}

// EventSource is the read side the analytics service aggregates over.
type EventSource interface {
	// Events returns every matching event with its timestamp and value.
	Events(ctx context.Context, q EventQuery) ([]TimedEvent, error)
	// Total returns the event count, or the summed value for earnings.
	Total(ctx context.Context, q EventQuery) (float64, error)
	// OwnerNames resolves display names for leaderboard IDs.
	OwnerNames(ctx context.Context, kind OwnerKind, ids []string) (map[string]string, error)
}
