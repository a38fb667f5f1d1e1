// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry wiring, health checks and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)
//	logger.WithField("merchant_id", id).Info("digest sent")
//
// Request-scoped loggers travel in the context:
//
//	ctx = observability.WithLogger(ctx, logger.WithField("request_id", reqID))
//	observability.FromContext(ctx).Warn("slow graph")
//
// FromContext also adds user_id, merchant_id and, under an active span,
// trace_id and span_id.
//
// # Metrics
//
// Metrics (Prometheus) and OTelMetrics both implement Recorder. Components
// take a Recorder; Recorders{prom, otel} fans out to both.
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	observability.RegisterMetricsEndpoint(router, registry)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version).
//		AddCritical("mongodb", store).
//		AddOptional("redis", redisClient)
//	observability.RegisterHealthRoutes(router, checker)
//
// # Shutdown
//
// ShutdownManager drains the HTTP server and then runs closers last-in
// first-out, so register a store before the jobs that use it.
//
// # Related Packages
//
//   - pkg/config: observability settings
//   - pkg/httputil: request ID and access log middleware
package observability
