package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/biolink/pkg/analytics"
	"github.com/platinummonkey/biolink/pkg/api"
	"github.com/platinummonkey/biolink/pkg/auth"
	"github.com/platinummonkey/biolink/pkg/billing"
	"github.com/platinummonkey/biolink/pkg/config"
	"github.com/platinummonkey/biolink/pkg/domains"
	"github.com/platinummonkey/biolink/pkg/middleware"
	"github.com/platinummonkey/biolink/pkg/notify"
	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/platinummonkey/biolink/pkg/storage/cache"
	"github.com/platinummonkey/biolink/pkg/storage/mongodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
)

// Version is stamped at build time with -ldflags "-X .../pkg/app.Version=..."
var Version = "dev"

// Closer is a named shutdown step contributed by a provider
type Closer struct {
	Name string
	Fn   observability.ShutdownFunc
}

// Core provides configuration, telemetry, storage, email and analytics.
var Core = fx.Options(
	fx.Provide(
		config.LoadConfig,
		NewLogger,
		NewMetrics,
		NewOTel,
		NewRecorder,
		NewMongo,
		NewMailer,
		NewAnalytics,
	),
)

// Web adds the HTTP API on top of Core.
var Web = fx.Options(
	Core,
	fx.Provide(
		NewRedis,
		NewTokenIssuer,
		NewLogin,
		NewBilling,
		NewDomains,
		NewHealthChecker,
		NewAPI,
		NewHTTPServers,
	),
)

type closersIn struct {
	fx.In

	Closers []Closer `group:"closers"`
}

// CollectClosers copies every contributed Closer into dst once the graph is built
func CollectClosers(dst *[]Closer) fx.Option {
	return fx.Invoke(func(in closersIn) {
		*dst = in.Closers
	})
}

// NewLogger builds the process logger
func NewLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout).
		WithField("version", Version)
}

// NewMetrics registers the Prometheus collectors
func NewMetrics() (*prometheus.Registry, *observability.Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, observability.NewMetrics(registry)
}

// OTelResult carries the optional OpenTelemetry providers
type OTelResult struct {
	fx.Out

	Providers *observability.OTelProviders
	Closer    Closer `group:"closers"`
}

// NewOTel starts the OTLP exporters when enabled. Providers is nil otherwise.
func NewOTel(cfg *config.Config, logger *observability.Logger) (OTelResult, error) {
	o := cfg.Observability
	providers, err := observability.InitOTel(context.Background(), observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}, logger)
	if err != nil {
		return OTelResult{}, err
	}

	res := OTelResult{Providers: providers, Closer: Closer{Name: "opentelemetry"}}
	if providers != nil {
		res.Closer.Fn = providers.Shutdown
	}
	return res, nil
}

type recorderIn struct {
	fx.In

	Config  *config.Config
	Metrics *observability.Metrics
	OTel    *observability.OTelProviders
}

// NewRecorder fans domain metrics out to Prometheus and, when enabled, OpenTelemetry
func NewRecorder(in recorderIn) (observability.Recorder, error) {
	recorders := observability.Recorders{}
	if in.Config.Observability.MetricsEnabled {
		recorders = append(recorders, in.Metrics)
	}
	if in.OTel != nil {
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to create otel instruments: %w", err)
		}
		recorders = append(recorders, otelMetrics)
	}
	return recorders, nil
}

// MongoResult carries the document store
type MongoResult struct {
	fx.Out

	Store  *mongodb.Store
	Closer Closer `group:"closers"`
}

// NewMongo connects to MongoDB and ensures indexes
func NewMongo(cfg *config.Config, logger *observability.Logger) (MongoResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Storage.MongoTimeout+time.Second)
	defer cancel()

	store, err := mongodb.Connect(ctx, cfg.Storage)
	if err != nil {
		return MongoResult{}, err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = store.Close(context.Background())
		return MongoResult{}, err
	}
	logger.WithField("database", cfg.Storage.MongoDatabase).Info("connected to mongodb")
	return MongoResult{Store: store, Closer: Closer{Name: "mongodb", Fn: store.Close}}, nil
}

// RedisResult carries the Redis client
type RedisResult struct {
	fx.Out

	Client *cache.RedisClient
	Closer Closer `group:"closers"`
}

// NewRedis connects to Redis
func NewRedis(cfg *config.Config) (RedisResult, error) {
	client, err := cache.NewRedisClient(cfg.Storage)
	if err != nil {
		return RedisResult{}, err
	}
	return RedisResult{
		Client: client,
		Closer: Closer{Name: "redis", Fn: func(context.Context) error { return client.Close() }},
	}, nil
}

// NewMailer returns a Resend-backed mailer, or a disabled one without an API key
func NewMailer(cfg *config.Config, logger *observability.Logger, recorder observability.Recorder) *notify.Mailer {
	var sender notify.Sender
	if cfg.Email.ResendAPIKey != "" {
		sender = notify.NewResendSender(cfg.Email.ResendAPIKey)
	} else {
		logger.Warn("email delivery disabled: BIOLINK_RESEND_API_KEY not set")
	}
	return notify.NewMailer(sender, cfg.Email.From, logger, recorder)
}

// NewAnalytics builds the dashboard service over the event store
func NewAnalytics(store *mongodb.Store) *analytics.Service {
	return analytics.NewService(store)
}

// NewTokenIssuer builds the session token signer
func NewTokenIssuer(cfg *config.Config) *auth.TokenIssuer {
	return auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
}

// NewLogin wires OTP issuance to Redis, the mailer and the account store
func NewLogin(cfg *config.Config, redis *cache.RedisClient, mailer *notify.Mailer, store *mongodb.Store,
	tokens *auth.TokenIssuer, logger *observability.Logger) *auth.LoginService {
	otp := auth.NewOTPService(redis, mailer, auth.OTPConfig{
		TTL:         cfg.Auth.OTPTTL,
		Length:      cfg.Auth.OTPLength,
		MaxAttempts: cfg.Auth.OTPMaxAttempts,
	}, logger)
	return auth.NewLoginService(otp, store, store, tokens, logger)
}

// NewBilling returns the Stripe subscription service, or nil when billing is not configured
func NewBilling(cfg *config.Config, store *mongodb.Store, logger *observability.Logger) billing.Service {
	if !cfg.BillingEnabled() {
		logger.Warn("billing disabled: BIOLINK_STRIPE_SECRET_KEY not set")
		return nil
	}
	gateway := billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, nil)
	plans := billing.DefaultPlans(map[billing.PlanTier]string{
		billing.PlanPro:      cfg.Stripe.ProPriceID,
		billing.PlanBusiness: cfg.Stripe.BusinessPriceID,
	})
	return billing.NewSubscriptionService(store, store, gateway, plans, logger)
}

// NewDomains returns the reseller client, or nil when no reseller is configured
func NewDomains(cfg *config.Config, logger *observability.Logger, recorder observability.Recorder) (api.DomainRegistrar, error) {
	if !cfg.DomainsEnabled() {
		logger.Warn("domain registration disabled: BIOLINK_DOMAINS_URL not set")
		return nil, nil
	}
	client, err := domains.NewClient(domains.Config{
		BaseURL:   cfg.Domains.BaseURL,
		APIKey:    cfg.Domains.APIKey,
		Timeout:   cfg.Domains.Timeout,
		RetryMax:  cfg.Domains.RetryMax,
		CacheSize: cfg.Domains.CacheSize,
		CacheTTL:  cfg.Domains.CacheTTL,
	}, logger, recorder)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewHealthChecker reports MongoDB as critical and Redis as optional
func NewHealthChecker(store *mongodb.Store, redis *cache.RedisClient) *observability.HealthChecker {
	return observability.NewHealthChecker(Version).
		AddCritical("mongodb", store).
		AddOptional("redis", redis)
}

type apiIn struct {
	fx.In

	Config    *config.Config
	Logger    *observability.Logger
	Tokens    *auth.TokenIssuer
	Login     *auth.LoginService
	Analytics *analytics.Service
	Billing   billing.Service
	Domains   api.DomainRegistrar
	Redis     *cache.RedisClient
	Recorder  observability.Recorder
	Metrics   *observability.Metrics
}

// NewAPI assembles the HTTP API
func NewAPI(in apiIn) *api.Server {
	deps := api.Dependencies{
		Logger:       in.Logger,
		Tokens:       in.Tokens,
		Login:        in.Login,
		Analytics:    in.Analytics,
		Billing:      in.Billing,
		Domains:      in.Domains,
		Limiter:      in.Redis,
		Recorder:     in.Recorder,
		CORSOrigins:  in.Config.Server.CORSOrigins,
		MaxBodyBytes: in.Config.Server.MaxBodyBytes,
		OTPRateLimit: middleware.RateLimitConfig{
			Name:              "otp",
			RequestsPerWindow: in.Config.Auth.OTPRateLimit,
			WindowDuration:    in.Config.Auth.OTPRateWindow,
		},
	}
	if in.Config.Observability.MetricsEnabled {
		deps.Metrics = in.Metrics
	}
	return api.NewServer(deps)
}

// Servers are the public API listener and the internal health/metrics listener
type Servers struct {
	API    *http.Server
	Health *http.Server
}

// NewHTTPServers builds both listeners without starting them
func NewHTTPServers(cfg *config.Config, apiServer *api.Server, health *observability.HealthChecker,
	registry *prometheus.Registry, otelProviders *observability.OTelProviders) Servers {
	var handler http.Handler = apiServer
	if otelProviders != nil {
		handler = otelhttp.NewHandler(apiServer, "biolink.api")
	}

	healthRouter := mux.NewRouter()
	observability.RegisterHealthRoutes(healthRouter, health)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthRouter, registry)
	}

	return Servers{
		API: &http.Server{
			Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		Health: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
			Handler:           healthRouter,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}
