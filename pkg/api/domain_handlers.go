package api

import (
	"context"
	"net/http"

	"github.com/platinummonkey/biolink/pkg/domains"
	"github.com/platinummonkey/biolink/pkg/httputil"
)

// DomainRegistrar checks and buys custom domains
type DomainRegistrar interface {
	CheckAvailability(ctx context.Context, domain string) (*domains.Availability, error)
	Register(ctx context.Context, req domains.RegisterRequest) (*domains.Registration, error)
}

// DomainHandlers handles custom domain requests
type DomainHandlers struct {
	registrar DomainRegistrar
}

// NewDomainHandlers creates a new DomainHandlers
func NewDomainHandlers(registrar DomainRegistrar) *DomainHandlers {
	return &DomainHandlers{registrar: registrar}
}

// RegisterCheckRoutes registers the availability lookup on an authenticated router
func (h *DomainHandlers) RegisterCheckRoutes(router Routes) {
	router.HandleFunc("/domains/check", h.checkAvailability).Methods("GET")
}

// RegisterMerchantRoutes registers domain purchase on a merchant-gated router
func (h *DomainHandlers) RegisterMerchantRoutes(router Routes) {
	router.HandleFunc("/domains", h.register).Methods("POST")
}

// checkAvailability handles GET /domains/check?domain=
func (h *DomainHandlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	domain := httputil.ParseQueryString(r, "domain", "")
	if domain == "" {
		httputil.WriteValidationError(w, "validation failed", map[string]string{"domain": "required"})
		return
	}

	availability, err := h.registrar.CheckAvailability(r.Context(), domain)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, availability)
}

// register handles POST /domains
func (h *DomainHandlers) register(w http.ResponseWriter, r *http.Request) {
	id := merchantID(r)
	if id == "" {
		httputil.WriteBadRequest(w, "merchantId is required")
		return
	}

	var req domains.RegisterRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	req.MerchantID = id

	registration, err := h.registrar.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, registration)
}
