package billing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrSubscriptionNotFound is returned when a merchant has no subscription record.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrUnknownPlan is returned for plan tiers that are not offered.
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrAlreadySubscribed is returned when a merchant already has an active paid plan.
	ErrAlreadySubscribed = errors.New("merchant already has an active subscription")
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// PlanTier identifies a subscription plan
type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanPro      PlanTier = "pro"
	PlanBusiness PlanTier = "business"
)

// Plan describes a purchasable tier
type Plan struct {
	Tier          PlanTier        `json:"tier"`
	Name          string          `json:"name"`
	MonthlyPrice  decimal.Decimal `json:"monthlyPrice"`
	Currency      string          `json:"currency"`
	MaxOffers     int             `json:"maxOffers"`
	CustomDomain  bool            `json:"customDomain"`
	StripePriceID string          `json:"-"`
}

// IsPaid reports whether the plan is billed through Stripe.
func (p Plan) IsPaid() bool {
	return p.MonthlyPrice.IsPositive()
}

// DefaultPlans returns the plan catalogue. priceIDs maps paid tiers to Stripe price IDs.
func DefaultPlans(priceIDs map[PlanTier]string) map[PlanTier]Plan {
	return map[PlanTier]Plan{
		PlanFree: {
			Tier:         PlanFree,
			Name:         "Free",
			MonthlyPrice: decimal.Zero,
			Currency:     "usd",
			MaxOffers:    5,
		},
		PlanPro: {
			Tier:          PlanPro,
			Name:          "Pro",
			MonthlyPrice:  decimal.RequireFromString("9.99"),
			Currency:      "usd",
			MaxOffers:     50,
			CustomDomain:  true,
			StripePriceID: priceIDs[PlanPro],
		},
		PlanBusiness: {
			Tier:          PlanBusiness,
			Name:          "Business",
			MonthlyPrice:  decimal.RequireFromString("49.00"),
			Currency:      "usd",
			MaxOffers:     -1,
			CustomDomain:  true,
			StripePriceID: priceIDs[PlanBusiness],
		},
	}
}

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
)

// IsLive reports whether the subscription currently grants its plan.
func (s SubscriptionStatus) IsLive() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing || s == SubscriptionStatusPastDue
}

// Subscription is a merchant's billing state, mirrored from Stripe for paid plans.
type Subscription struct {
	ID                   string             `json:"id" bson:"_id"`
	MerchantID           string             `json:"merchantId" bson:"merchantId"`
	Plan                 PlanTier           `json:"plan" bson:"plan"`
	Status               SubscriptionStatus `json:"status" bson:"status"`
	StripeCustomerID     string             `json:"stripeCustomerId,omitempty" bson:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string             `json:"stripeSubscriptionId,omitempty" bson:"stripeSubscriptionId,omitempty"`
	CancelAtPeriodEnd    bool               `json:"cancelAtPeriodEnd" bson:"cancelAtPeriodEnd"`
	CanceledAt           *time.Time         `json:"canceledAt,omitempty" bson:"canceledAt,omitempty"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreateSubscriptionRequest represents request to create a subscription
type CreateSubscriptionRequest struct {
	Plan            PlanTier `json:"plan" validate:"required,oneof=free pro business"`
	PaymentMethodID string   `json:"paymentMethodId,omitempty"`
}

// CancelSubscriptionRequest represents request to cancel a subscription
type CancelSubscriptionRequest struct {
	AtPeriodEnd bool `json:"atPeriodEnd"`
}

// GatewaySubscription is the payment provider's view of a subscription.
type GatewaySubscription struct {
	ID                string
	Status            SubscriptionStatus
	CancelAtPeriodEnd bool
}

// WebhookEvent is a verified, decoded payment provider notification.
type WebhookEvent struct {
	ID                string
	Type              string
	CustomerID        string
	SubscriptionID    string
	Status            SubscriptionStatus
	CancelAtPeriodEnd bool
}

// Gateway is the payment provider
type Gateway interface {
	CreateCustomer(ctx context.Context, email, merchantID string) (string, error)
	CreateSubscription(ctx context.Context, customerID, priceID, paymentMethodID string) (*GatewaySubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*GatewaySubscription, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// Repository persists subscriptions
type Repository interface {
	SaveSubscription(ctx context.Context, sub *Subscription) error
	GetSubscriptionByMerchant(ctx context.Context, merchantID string) (*Subscription, error)
	GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)
	GetSubscriptionByCustomer(ctx context.Context, customerID string) (*Subscription, error)
}

// Service defines the interface for billing operations
type Service interface {
	Plans() []Plan
	CreateSubscription(ctx context.Context, merchantID string, req *CreateSubscriptionRequest) (*Subscription, error)
	GetSubscription(ctx context.Context, merchantID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, merchantID string, atPeriodEnd bool) (*Subscription, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}
