package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/platinummonkey/biolink/pkg/analytics"
	"github.com/platinummonkey/biolink/pkg/app"
	"github.com/platinummonkey/biolink/pkg/config"
	"github.com/platinummonkey/biolink/pkg/notify"
	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/platinummonkey/biolink/pkg/storage/mongodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

var (
	envFile  = flag.String("env-file", ".env", "Optional dotenv file loaded before configuration")
	schedule = flag.String("schedule", "", "Cron schedule overriding BIOLINK_DIGEST_SCHEDULE")
	runOnce  = flag.Bool("run-once", false, "Send one round of digests and exit")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	var (
		cfg      *config.Config
		logger   *observability.Logger
		metrics  *observability.Metrics
		registry *prometheus.Registry
		store    *mongodb.Store
		service  *analytics.Service
		mailer   *notify.Mailer
		closers  []app.Closer
	)
	fxApp := fx.New(
		fx.NopLogger,
		app.Core,
		app.CollectClosers(&closers),
		fx.Populate(&cfg, &logger, &metrics, &registry, &store, &service, &mailer),
	)
	if err := fxApp.Err(); err != nil {
		log.Fatalf("Failed to start digest: %v", err)
	}
	logger = logger.WithField("component", "digest")

	shutdown := observability.NewShutdownManager(logger, nil, cfg.Server.ShutdownTimeout)
	for _, c := range closers {
		shutdown.Register(c.Name, c.Fn)
	}

	runner := NewRunner(store, service, mailer, logger, cfg.Digest.Concurrency)
	run := func(ctx context.Context) error {
		err := runner.RunOnce(ctx)
		metrics.RecordDigestRun(time.Now(), err)
		return err
	}

	if *runOnce {
		err := run(context.Background())
		if shutdownErr := shutdown.Shutdown(); shutdownErr != nil {
			logger.WithError(shutdownErr).Warn("shutdown incomplete")
		}
		if err != nil {
			logger.WithError(err).Error("digest run failed")
			os.Exit(1)
		}
		return
	}

	spec := cfg.Digest.Schedule
	if *schedule != "" {
		spec = *schedule
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusServer := newStatusServer(cfg, store, registry)
	shutdown.Register("status server", statusServer.Shutdown)
	go func() {
		defer observability.RecoverPanic(logger, "status server")
		if err := statusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("status server failed")
			stop()
		}
	}()

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(spec, func() {
		if err := run(ctx); err != nil {
			logger.WithError(err).Error("digest run failed")
		}
	}); err != nil {
		log.Fatalf("Failed to schedule digest %q: %v", spec, err)
	}
	shutdown.Register("cron", func(ctx context.Context) error {
		select {
		case <-c.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	c.Start()
	logger.WithField("schedule", spec).Info("digest scheduler started")

	if err := shutdown.Run(ctx); err != nil {
		logger.WithError(err).Error("shutdown incomplete")
		os.Exit(1)
	}
}

// newStatusServer serves /health and, when enabled, /metrics on the health port
func newStatusServer(cfg *config.Config, store *mongodb.Store, registry *prometheus.Registry) *http.Server {
	router := mux.NewRouter()
	observability.RegisterHealthRoutes(router, observability.NewHealthChecker(app.Version).AddCritical("mongodb", store))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(router, registry)
	}
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// cronLogger adapts the structured logger to cron.Logger
type cronLogger struct {
	logger *observability.Logger
}

func (l cronLogger) fields(keysAndValues []interface{}) *observability.Logger {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return l.logger.WithFields(fields)
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).WithError(err).Error("cron: " + msg)
}
