package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeGateway("sk_test_123", testWebhookSecret, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func TestStripeGatewayCreateCustomer(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/customers", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "shop@example.com", r.PostForm.Get("email"))
		assert.Equal(t, "m1", r.PostForm.Get("metadata[merchant_id]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cus_123","object":"customer"}`))
	})

	id, err := gw.CreateCustomer(context.Background(), "shop@example.com", "m1")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)
}

func TestStripeGatewayCreateSubscription(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))
		assert.Equal(t, "price_pro", r.PostForm.Get("items[0][price]"))
		assert.Equal(t, "pm_1", r.PostForm.Get("default_payment_method"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"sub_1","object":"subscription","status":"incomplete"}`))
	})

	sub, err := gw.CreateSubscription(context.Background(), "cus_123", "price_pro", "pm_1")
	require.NoError(t, err)
	assert.Equal(t, &GatewaySubscription{ID: "sub_1", Status: SubscriptionStatusIncomplete}, sub)
}

func TestStripeGatewayCancelSubscription(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions/sub_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodDelete:
			w.Write([]byte(`{"id":"sub_1","object":"subscription","status":"canceled"}`))
		case http.MethodPost:
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "true", r.PostForm.Get("cancel_at_period_end"))
			w.Write([]byte(`{"id":"sub_1","object":"subscription","status":"active","cancel_at_period_end":true}`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	sub, err := gw.CancelSubscription(context.Background(), "sub_1", false)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionStatusCanceled, sub.Status)

	sub, err = gw.CancelSubscription(context.Background(), "sub_1", true)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
}

func TestStripeGatewayAPIError(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	})

	_, err := gw.CreateSubscription(context.Background(), "cus_1", "price_pro", "")
	require.Error(t, err)

	var stripeErr *stripe.Error
	require.ErrorAs(t, err, &stripeErr)
	assert.Equal(t, stripe.ErrorCodeCardDeclined, stripeErr.Code)
}

func signedPayload(t *testing.T, payload string, secret string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  secret,
	})
	return signed.Header, signed.Payload
}

func TestStripeGatewayParseWebhookSubscription(t *testing.T) {
	gw := NewStripeGateway("sk_test_123", testWebhookSecret, nil)
	header, body := signedPayload(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "customer.subscription.updated",
		"data": {"object": {"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": "past_due", "cancel_at_period_end": true}}
	}`, testWebhookSecret)

	event, err := gw.ParseWebhook(body, header)
	require.NoError(t, err)

	assert.Equal(t, &WebhookEvent{
		ID:                "evt_1",
		Type:              EventSubscriptionUpdated,
		CustomerID:        "cus_1",
		SubscriptionID:    "sub_1",
		Status:            SubscriptionStatusPastDue,
		CancelAtPeriodEnd: true,
	}, event)
}

func TestStripeGatewayParseWebhookInvoice(t *testing.T) {
	gw := NewStripeGateway("sk_test_123", testWebhookSecret, nil)
	header, body := signedPayload(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "invoice.payment_failed",
		"data": {"object": {"id": "in_1", "object": "invoice", "customer": "cus_1", "status": "open"}}
	}`, testWebhookSecret)

	event, err := gw.ParseWebhook(body, header)
	require.NoError(t, err)

	assert.Equal(t, EventInvoicePaymentFailed, event.Type)
	assert.Equal(t, "cus_1", event.CustomerID)
	assert.Empty(t, event.SubscriptionID)
}

func TestStripeGatewayParseWebhookBadSignature(t *testing.T) {
	gw := NewStripeGateway("sk_test_123", testWebhookSecret, nil)
	header, body := signedPayload(t, `{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{}}}`, "whsec_other")

	_, err := gw.ParseWebhook(body, header)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = gw.ParseWebhook(body, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
