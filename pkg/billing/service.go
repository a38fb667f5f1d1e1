package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/platinummonkey/biolink/pkg/storage"
)

// Stripe event types the service reacts to
const (
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// SubscriptionService implements Service on top of a Repository and a payment Gateway.
type SubscriptionService struct {
	repo      Repository
	merchants storage.MerchantStore
	gateway   Gateway
	plans     map[PlanTier]Plan
	logger    *observability.Logger
	now       func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(repo Repository, merchants storage.MerchantStore, gateway Gateway, plans map[PlanTier]Plan, logger *observability.Logger) *SubscriptionService {
	if plans == nil {
		plans = DefaultPlans(nil)
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &SubscriptionService{
		repo:      repo,
		merchants: merchants,
		gateway:   gateway,
		plans:     plans,
		logger:    logger.WithField("component", "billing"),
		now:       time.Now,
	}
}

// Plans returns the catalogue ordered by price
func (s *SubscriptionService) Plans() []Plan {
	plans := make([]Plan, 0, len(s.plans))
	for _, p := range s.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].MonthlyPrice.LessThan(plans[j].MonthlyPrice)
	})
	return plans
}

// CreateSubscription puts a merchant on a plan. Paid plans create the Stripe
// customer on first use and start a Stripe subscription.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, merchantID string, req *CreateSubscriptionRequest) (*Subscription, error) {
	plan, ok := s.plans[req.Plan]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, req.Plan)
	}

	existing, err := s.repo.GetSubscriptionByMerchant(ctx, merchantID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if existing != nil && existing.Status.IsLive() && existing.StripeSubscriptionID != "" {
		return nil, ErrAlreadySubscribed
	}

	merchant, err := s.merchants.GetMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant: %w", err)
	}

	now := s.now().UTC()
	sub := existing
	if sub == nil {
		sub = &Subscription{ID: uuid.NewString(), MerchantID: merchantID, CreatedAt: now}
	}
	sub.Plan = plan.Tier
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = nil
	sub.UpdatedAt = now

	if !plan.IsPaid() {
		sub.Status = SubscriptionStatusActive
		sub.StripeSubscriptionID = ""
	} else {
		if plan.StripePriceID == "" {
			return nil, fmt.Errorf("plan %s has no stripe price configured", plan.Tier)
		}

		customerID, err := s.ensureCustomer(ctx, merchant)
		if err != nil {
			return nil, err
		}

		gs, err := s.gateway.CreateSubscription(ctx, customerID, plan.StripePriceID, req.PaymentMethodID)
		if err != nil {
			return nil, fmt.Errorf("failed to create stripe subscription: %w", err)
		}
		sub.StripeCustomerID = customerID
		sub.StripeSubscriptionID = gs.ID
		sub.Status = gs.Status
	}

	if err := s.repo.SaveSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"merchant_id": merchantID,
		"plan":        sub.Plan,
		"status":      sub.Status,
	}).Info("subscription created")
	return sub, nil
}

func (s *SubscriptionService) ensureCustomer(ctx context.Context, merchant *storage.Merchant) (string, error) {
	if merchant.StripeCustomerID != "" {
		return merchant.StripeCustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, merchant.Email, merchant.ID)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}
	if err := s.merchants.SetStripeCustomerID(ctx, merchant.ID, customerID); err != nil {
		return "", fmt.Errorf("failed to store stripe customer: %w", err)
	}
	return customerID, nil
}

// GetSubscription returns the merchant's subscription
func (s *SubscriptionService) GetSubscription(ctx context.Context, merchantID string) (*Subscription, error) {
	return s.repo.GetSubscriptionByMerchant(ctx, merchantID)
}

// CancelSubscription cancels immediately or at the end of the billing period.
// Cancelling a subscription that is no longer live is a no-op.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, merchantID string, atPeriodEnd bool) (*Subscription, error) {
	sub, err := s.repo.GetSubscriptionByMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if !sub.Status.IsLive() {
		return sub, nil
	}

	if sub.StripeSubscriptionID != "" {
		gs, err := s.gateway.CancelSubscription(ctx, sub.StripeSubscriptionID, atPeriodEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel stripe subscription: %w", err)
		}
		sub.Status = gs.Status
		sub.CancelAtPeriodEnd = gs.CancelAtPeriodEnd
	} else {
		sub.Status = SubscriptionStatusCanceled
	}

	now := s.now().UTC()
	if sub.Status == SubscriptionStatusCanceled {
		sub.CanceledAt = &now
	}
	sub.UpdatedAt = now

	if err := s.repo.SaveSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"merchant_id":   merchantID,
		"at_period_end": atPeriodEnd,
		"status":        sub.Status,
	}).Info("subscription canceled")
	return sub, nil
}

// HandleWebhook verifies a Stripe notification and mirrors the status change.
// Events for unknown subscriptions are acknowledged and ignored.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	logger := s.logger.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	var sub *Subscription
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		sub, err = s.repo.GetSubscriptionByStripeID(ctx, event.SubscriptionID)
	case EventInvoicePaid, EventInvoicePaymentFailed:
		sub, err = s.repo.GetSubscriptionByCustomer(ctx, event.CustomerID)
	default:
		logger.Debug("ignoring webhook event")
		return nil
	}
	if errors.Is(err, ErrSubscriptionNotFound) {
		logger.Warn("webhook for unknown subscription")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	now := s.now().UTC()
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		sub.Status = event.Status
		sub.CancelAtPeriodEnd = event.CancelAtPeriodEnd
	case EventSubscriptionDeleted:
		sub.Status = SubscriptionStatusCanceled
		sub.CanceledAt = &now
	case EventInvoicePaid:
		sub.Status = SubscriptionStatusActive
	case EventInvoicePaymentFailed:
		sub.Status = SubscriptionStatusPastDue
	}
	sub.UpdatedAt = now

	if err := s.repo.SaveSubscription(ctx, sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	logger.WithField("status", sub.Status).Info("subscription updated from webhook")
	return nil
}
