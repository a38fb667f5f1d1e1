package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/platinummonkey/biolink/pkg/billing"
	"github.com/platinummonkey/biolink/pkg/httputil"
	"github.com/platinummonkey/biolink/pkg/observability"
)

// maxWebhookBytes caps Stripe webhook payloads
const maxWebhookBytes = 64 << 10

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

var knownWebhookEvents = map[string]bool{
	billing.EventSubscriptionCreated:  true,
	billing.EventSubscriptionUpdated:  true,
	billing.EventSubscriptionDeleted:  true,
	billing.EventInvoicePaid:          true,
	billing.EventInvoicePaymentFailed: true,
}

// BillingHandlers handles billing-related HTTP requests
type BillingHandlers struct {
	billingService billing.Service
	recorder       observability.Recorder
}

// NewBillingHandlers creates a new BillingHandlers
func NewBillingHandlers(billingService billing.Service, recorder observability.Recorder) *BillingHandlers {
	if recorder == nil {
		recorder = observability.Recorders{}
	}
	return &BillingHandlers{
		billingService: billingService,
		recorder:       recorder,
	}
}

// RegisterPublicRoutes registers the plan catalogue and the Stripe webhook
func (h *BillingHandlers) RegisterPublicRoutes(router Routes) {
	router.HandleFunc("/billing/plans", h.ListPlans).Methods("GET")
	router.HandleFunc("/billing/webhook", h.HandleWebhook).Methods("POST")
}

// RegisterMerchantRoutes registers subscription routes on a merchant-gated router
func (h *BillingHandlers) RegisterMerchantRoutes(router Routes) {
	router.HandleFunc("/subscription", h.CreateSubscription).Methods("POST")
	router.HandleFunc("/subscription", h.GetSubscription).Methods("GET")
	router.HandleFunc("/subscription/cancel", h.CancelSubscription).Methods("POST")
}

// ListPlans returns the plan catalogue
func (h *BillingHandlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteSuccess(w, h.billingService.Plans())
}

// CreateSubscription creates a new subscription
func (h *BillingHandlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	id := merchantID(r)
	if id == "" {
		httputil.WriteBadRequest(w, "merchantId is required")
		return
	}

	var req billing.CreateSubscriptionRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	subscription, err := h.billingService.CreateSubscription(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, subscription)
}

// GetSubscription retrieves a subscription
func (h *BillingHandlers) GetSubscription(w http.ResponseWriter, r *http.Request) {
	id := merchantID(r)
	if id == "" {
		httputil.WriteBadRequest(w, "merchantId is required")
		return
	}

	subscription, err := h.billingService.GetSubscription(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, subscription)
}

// CancelSubscription cancels a subscription. An empty body cancels immediately.
func (h *BillingHandlers) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	id := merchantID(r)
	if id == "" {
		httputil.WriteBadRequest(w, "merchantId is required")
		return
	}

	var req billing.CancelSubscriptionRequest
	if err := httputil.ParseJSON(r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	subscription, err := h.billingService.CancelSubscription(r.Context(), id, req.AtPeriodEnd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, subscription)
}

// HandleWebhook handles Stripe webhooks
func (h *BillingHandlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read request body")
		return
	}
	if len(payload) > maxWebhookBytes {
		httputil.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	signature := r.Header.Get(StripeSignatureHeader)
	if signature == "" {
		h.recorder.RecordWebhook(r.Context(), "unsigned", billing.ErrInvalidSignature)
		httputil.WriteBadRequest(w, "missing signature")
		return
	}

	err = h.billingService.HandleWebhook(r.Context(), payload, signature)
	h.recorder.RecordWebhook(r.Context(), webhookEventType(payload, err), err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// webhookEventType labels a payload for metrics. Unverified payloads are
// never trusted for the label.
func webhookEventType(payload []byte, err error) string {
	if err != nil {
		return "rejected"
	}
	var envelope struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(payload, &envelope) != nil || !knownWebhookEvents[envelope.Type] {
		return "other"
	}
	return envelope.Type
}
