package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/biolink/pkg/auth"
	"github.com/platinummonkey/biolink/pkg/billing"
	"github.com/platinummonkey/biolink/pkg/httputil"
	"github.com/platinummonkey/biolink/pkg/middleware"
	"github.com/platinummonkey/biolink/pkg/observability"
)

// Dependencies are the services the API is built from. Billing and Domains
// are optional; their routes are not mounted when nil.
type Dependencies struct {
	Logger    *observability.Logger
	Tokens    middleware.TokenParser
	Login     LoginFlow
	Analytics AnalyticsService
	Billing   billing.Service
	Domains   DomainRegistrar

	// Limiter guards the OTP request route. Nil disables rate limiting.
	Limiter      middleware.Limiter
	OTPRateLimit middleware.RateLimitConfig

	Recorder     observability.Recorder
	Metrics      *observability.Metrics
	CORSOrigins  []string
	MaxBodyBytes int64

	// Now is the clock used by the dashboards; defaults to time.Now
	Now func() time.Time
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	deps    Dependencies
}

// NewServer creates a new API server
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if deps.Recorder == nil {
		deps.Recorder = observability.Recorders{}
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}
	if deps.OTPRateLimit.RequestsPerWindow == 0 {
		deps.OTPRateLimit = middleware.OTPRateLimitConfig()
	}

	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware(deps.Logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(deps.CORSOrigins),
		httputil.MaxBytesMiddleware(deps.MaxBodyBytes),
	)(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	d := s.deps
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	if d.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(d.Metrics))
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	var otpGuard func(http.Handler) http.Handler
	if d.Limiter != nil {
		otpGuard = middleware.RateLimit(d.Limiter, d.OTPRateLimit, d.Logger)
	}
	NewAuthHandlers(d.Login, d.Recorder, otpGuard).RegisterRoutes(api)

	var billingHandlers *BillingHandlers
	if d.Billing != nil {
		billingHandlers = NewBillingHandlers(d.Billing, d.Recorder)
		billingHandlers.RegisterPublicRoutes(api)
	}

	// Authenticated routes
	authenticate := middleware.NewAuthMiddleware(d.Tokens, false).Handler
	authed := routeGroup{router: api, middleware: []func(http.Handler) http.Handler{authenticate}}
	admin := authed.group("/admin", middleware.RequireRole(auth.RoleAdmin))
	merchant := authed.group("/merchant", middleware.RequireMerchant)

	analyticsHandlers := NewAnalyticsHandlers(d.Analytics, d.Recorder)
	if d.Now != nil {
		analyticsHandlers.now = d.Now
	}
	analyticsHandlers.RegisterAdminRoutes(admin)
	analyticsHandlers.RegisterMerchantRoutes(merchant)
	if billingHandlers != nil {
		billingHandlers.RegisterMerchantRoutes(merchant)
	}

	if d.Domains != nil {
		domainHandlers := NewDomainHandlers(d.Domains)
		domainHandlers.RegisterCheckRoutes(authed)
		domainHandlers.RegisterMerchantRoutes(authed.group("", middleware.RequireMerchant))
	}
}

// Routes is where handlers register their endpoints. *mux.Router satisfies it.
type Routes interface {
	Handle(path string, handler http.Handler) *mux.Route
	HandleFunc(path string, f func(http.ResponseWriter, *http.Request)) *mux.Route
}

// routeGroup registers leaf routes under prefix on one shared router, each
// wrapped in the group's middleware. Every route stays a direct child of the
// /api/v1 router so a wrong method on a known path is answered with 405.
type routeGroup struct {
	router     *mux.Router
	prefix     string
	middleware []func(http.Handler) http.Handler
}

// group returns a nested group; its middleware runs after the parent's
func (g routeGroup) group(prefix string, mw ...func(http.Handler) http.Handler) routeGroup {
	chain := append(append([]func(http.Handler) http.Handler(nil), g.middleware...), mw...)
	return routeGroup{router: g.router, prefix: g.prefix + prefix, middleware: chain}
}

func (g routeGroup) Handle(path string, handler http.Handler) *mux.Route {
	return g.router.Handle(g.prefix+path, httputil.Chain(g.middleware...)(handler))
}

func (g routeGroup) HandleFunc(path string, f func(http.ResponseWriter, *http.Request)) *mux.Route {
	return g.Handle(path, http.HandlerFunc(f))
}

// Router returns the underlying router, for mounting extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
