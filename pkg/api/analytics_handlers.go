package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/biolink/pkg/analytics"
	"github.com/platinummonkey/biolink/pkg/httputil"
	"github.com/platinummonkey/biolink/pkg/middleware"
	"github.com/platinummonkey/biolink/pkg/observability"
)

// AnalyticsService builds the dashboard graphs and summaries
type AnalyticsService interface {
	AdminSignupGraph(ctx context.Context, filter analytics.GraphFilter) (*analytics.SignupGraph, error)
	MerchantSignupGraph(ctx context.Context, merchantID string, filter analytics.GraphFilter) (*analytics.SignupGraph, error)
	AdminEarningsGraph(ctx context.Context, filter analytics.GraphFilter) (*analytics.EarningsGraph, error)
	MerchantEarningsGraph(ctx context.Context, merchantID string, filter analytics.GraphFilter) (*analytics.EarningsGraph, error)
	AdminDashboardSummary(ctx context.Context, now time.Time) (*analytics.AdminSummary, error)
	MerchantDashboardSummary(ctx context.Context, merchantID string, now time.Time) (*analytics.MerchantSummary, error)
}

// AnalyticsHandlers serves the admin and merchant dashboards
type AnalyticsHandlers struct {
	service  AnalyticsService
	recorder observability.Recorder
	now      func() time.Time
}

// NewAnalyticsHandlers creates a new analytics handlers instance
func NewAnalyticsHandlers(service AnalyticsService, recorder observability.Recorder) *AnalyticsHandlers {
	if recorder == nil {
		recorder = observability.Recorders{}
	}
	return &AnalyticsHandlers{service: service, recorder: recorder, now: time.Now}
}

// RegisterAdminRoutes registers routes on a router already gated to admins
func (h *AnalyticsHandlers) RegisterAdminRoutes(router Routes) {
	router.HandleFunc("/dashboard", h.adminDashboard).Methods("GET")
	router.HandleFunc("/graphs/signups", h.adminSignups).Methods("GET")
	router.HandleFunc("/graphs/earnings", h.adminEarnings).Methods("GET")
}

// RegisterMerchantRoutes registers routes on a router already gated to merchants
func (h *AnalyticsHandlers) RegisterMerchantRoutes(router Routes) {
	router.HandleFunc("/dashboard", h.merchantDashboard).Methods("GET")
	router.HandleFunc("/graphs/signups", h.merchantSignups).Methods("GET")
	router.HandleFunc("/graphs/earnings", h.merchantEarnings).Methods("GET")
}

// graphFilter reads startDate/endDate and writes a 400 when either is missing
func graphFilter(w http.ResponseWriter, r *http.Request) (analytics.GraphFilter, bool) {
	filter := analytics.GraphFilter{
		StartDate: httputil.ParseQueryString(r, "startDate", ""),
		EndDate:   httputil.ParseQueryString(r, "endDate", ""),
	}
	if !httputil.ValidateOrError(w, filter) {
		return filter, false
	}
	if _, err := filter.Range(); err != nil {
		field := analytics.FieldStartDate
		var fe *analytics.FilterError
		if errors.As(err, &fe) {
			field = fe.Field
		}
		httputil.WriteValidationError(w, err.Error(), map[string]string{field: "invalid"})
		return filter, false
	}
	return filter, true
}

// merchantID returns the merchant the caller acts for. Admins may pass ?merchantId=.
func merchantID(r *http.Request) string {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		return ""
	}
	if id := authCtx.Identity.MerchantID; id != "" {
		return id
	}
	return httputil.ParseQueryString(r, "merchantId", "")
}

// adminDashboard handles GET /admin/dashboard
func (h *AnalyticsHandlers) adminDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.AdminDashboardSummary(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, summary)
}

// merchantDashboard handles GET /merchant/dashboard
func (h *AnalyticsHandlers) merchantDashboard(w http.ResponseWriter, r *http.Request) {
	id := merchantID(r)
	if id == "" {
		httputil.WriteBadRequest(w, "merchantId is required")
		return
	}
	summary, err := h.service.MerchantDashboardSummary(r.Context(), id, h.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, summary)
}

func (h *AnalyticsHandlers) adminSignups(w http.ResponseWriter, r *http.Request) {
	h.signupGraph(w, r, "admin_signups", func(ctx context.Context, f analytics.GraphFilter) (*analytics.SignupGraph, error) {
		return h.service.AdminSignupGraph(ctx, f)
	})
}

func (h *AnalyticsHandlers) merchantSignups(w http.ResponseWriter, r *http.Request) {
	id := merchantID(r)
	if id == "" {
		httputil.WriteBadRequest(w, "merchantId is required")
		return
	}
	h.signupGraph(w, r, "merchant_signups", func(ctx context.Context, f analytics.GraphFilter) (*analytics.SignupGraph, error) {
		return h.service.MerchantSignupGraph(ctx, id, f)
	})
}

func (h *AnalyticsHandlers) adminEarnings(w http.ResponseWriter, r *http.Request) {
	h.earningsGraph(w, r, "admin_earnings", func(ctx context.Context, f analytics.GraphFilter) (*analytics.EarningsGraph, error) {
		return h.service.AdminEarningsGraph(ctx, f)
	})
}

func (h *AnalyticsHandlers) merchantEarnings(w http.ResponseWriter, r *http.Request) {
	id := merchantID(r)
	if id == "" {
		httputil.WriteBadRequest(w, "merchantId is required")
		return
	}
	h.earningsGraph(w, r, "merchant_earnings", func(ctx context.Context, f analytics.GraphFilter) (*analytics.EarningsGraph, error) {
		return h.service.MerchantEarningsGraph(ctx, id, f)
	})
}

func (h *AnalyticsHandlers) signupGraph(w http.ResponseWriter, r *http.Request, name string,
	build func(context.Context, analytics.GraphFilter) (*analytics.SignupGraph, error)) {
	filter, ok := graphFilter(w, r)
	if !ok {
		return
	}

	start := time.Now()
	graph, err := build(r.Context(), filter)
	var granularity string
	if graph != nil {
		granularity = string(graph.FilterType)
	}
	h.recorder.RecordGraph(r.Context(), name, granularity, time.Since(start), err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, graph)
}

func (h *AnalyticsHandlers) earningsGraph(w http.ResponseWriter, r *http.Request, name string,
	build func(context.Context, analytics.GraphFilter) (*analytics.EarningsGraph, error)) {
	filter, ok := graphFilter(w, r)
	if !ok {
		return
	}

	start := time.Now()
	graph, err := build(r.Context(), filter)
	var granularity string
	if graph != nil {
		granularity = string(graph.FilterType)
	}
	h.recorder.RecordGraph(r.Context(), name, granularity, time.Since(start), err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, graph)
}
