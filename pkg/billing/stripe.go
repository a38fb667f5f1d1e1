package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway implements Gateway with the Stripe API
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway creates a gateway authenticated with apiKey. webhookSecret
// is the endpoint signing secret used to verify notifications.
func NewStripeGateway(apiKey, webhookSecret string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, backends)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

// CreateCustomer creates a Stripe customer tagged with the merchant ID
func (g *StripeGateway) CreateCustomer(_ context.Context, email, merchantID string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.AddMetadata("merchant_id", merchantID)

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

// CreateSubscription subscribes a customer to a single price
func (g *StripeGateway) CreateSubscription(_ context.Context, customerID, priceID, paymentMethodID string) (*GatewaySubscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	}
	if paymentMethodID != "" {
		params.DefaultPaymentMethod = stripe.String(paymentMethodID)
	}

	sub, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, err
	}
	return toGatewaySubscription(sub), nil
}

// CancelSubscription cancels now, or flags the subscription to end with the current period.
func (g *StripeGateway) CancelSubscription(_ context.Context, subscriptionID string, atPeriodEnd bool) (*GatewaySubscription, error) {
	var (
		sub *stripe.Subscription
		err error
	)
	if atPeriodEnd {
		sub, err = g.api.Subscriptions.Update(subscriptionID, &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
	} else {
		sub, err = g.api.Subscriptions.Cancel(subscriptionID, &stripe.SubscriptionCancelParams{})
	}
	if err != nil {
		return nil, err
	}
	return toGatewaySubscription(sub), nil
}

func toGatewaySubscription(sub *stripe.Subscription) *GatewaySubscription {
	return &GatewaySubscription{
		ID:                sub.ID,
		Status:            SubscriptionStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
}

// webhookObject holds the fields read from subscription and invoice payloads.
type webhookObject struct {
	ID                string `json:"id"`
	Object            string `json:"object"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	var obj webhookObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}
	out.CustomerID = obj.Customer
	if obj.Object == "subscription" {
		out.SubscriptionID = obj.ID
		out.Status = SubscriptionStatus(obj.Status)
		out.CancelAtPeriodEnd = obj.CancelAtPeriodEnd
	}
	return out, nil
}
