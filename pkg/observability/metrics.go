package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives domain events worth counting. Both the Prometheus
// registry and the OTel meter implement it; Recorders fans out to several.
type Recorder interface {
	RecordGraph(ctx context.Context, graph, granularity string, duration time.Duration, err error)
	RecordOTP(ctx context.Context, stage, result string)
	RecordEmail(ctx context.Context, template string, err error)
	RecordCacheLookup(ctx context.Context, cache string, hit bool)
	RecordWebhook(ctx context.Context, eventType string, err error)
}

// Recorders fans a call out to every recorder in the slice
type Recorders []Recorder

func (rs Recorders) RecordGraph(ctx context.Context, graph, granularity string, duration time.Duration, err error) {
	for _, r := range rs {
		r.RecordGraph(ctx, graph, granularity, duration, err)
	}
}

func (rs Recorders) RecordOTP(ctx context.Context, stage, result string) {
	for _, r := range rs {
		r.RecordOTP(ctx, stage, result)
	}
}

func (rs Recorders) RecordEmail(ctx context.Context, template string, err error) {
	for _, r := range rs {
		r.RecordEmail(ctx, template, err)
	}
}

func (rs Recorders) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	for _, r := range rs {
		r.RecordCacheLookup(ctx, cache, hit)
	}
}

func (rs Recorders) RecordWebhook(ctx context.Context, eventType string, err error) {
	for _, r := range rs {
		r.RecordWebhook(ctx, eventType, err)
	}
}

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Analytics metrics
	GraphBuildsTotal   *prometheus.CounterVec
	GraphBuildDuration *prometheus.HistogramVec

	// Login metrics
	OTPEventsTotal *prometheus.CounterVec

	// Outbound metrics
	EmailsSentTotal     *prometheus.CounterVec
	WebhookEventsTotal  *prometheus.CounterVec
	CacheLookupsTotal   *prometheus.CounterVec
	DigestRunsTotal     *prometheus.CounterVec
	DigestLastRunUnixTS prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biolink_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "biolink_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "biolink_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		GraphBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biolink_graph_builds_total",
				Help: "Total number of dashboard graphs built",
			},
			[]string{"graph", "granularity", "status"},
		),
		GraphBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "biolink_graph_build_duration_seconds",
				Help:    "Time spent fetching and bucketing a graph",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"graph"},
		),

		OTPEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biolink_otp_events_total",
				Help: "Login code issues and verifications by result",
			},
			[]string{"stage", "result"},
		),

		EmailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biolink_emails_sent_total",
				Help: "Total number of transactional emails",
			},
			[]string{"template", "status"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biolink_billing_webhook_events_total",
				Help: "Stripe webhook events processed",
			},
			[]string{"type", "status"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biolink_cache_lookups_total",
				Help: "In-process cache lookups",
			},
			[]string{"cache", "result"},
		),
		DigestRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biolink_digest_runs_total",
				Help: "Weekly digest passes",
			},
			[]string{"status"},
		),
		DigestLastRunUnixTS: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "biolink_digest_last_run_timestamp_seconds",
				Help: "Unix time of the last completed digest pass",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.GraphBuildsTotal,
		m.GraphBuildDuration,
		m.OTPEventsTotal,
		m.EmailsSentTotal,
		m.WebhookEventsTotal,
		m.CacheLookupsTotal,
		m.DigestRunsTotal,
		m.DigestLastRunUnixTS,
	)

	return m
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) RecordGraph(_ context.Context, graph, granularity string, duration time.Duration, err error) {
	m.GraphBuildsTotal.WithLabelValues(graph, granularity, statusLabel(err)).Inc()
	m.GraphBuildDuration.WithLabelValues(graph).Observe(duration.Seconds())
}

func (m *Metrics) RecordOTP(_ context.Context, stage, result string) {
	m.OTPEventsTotal.WithLabelValues(stage, result).Inc()
}

func (m *Metrics) RecordEmail(_ context.Context, template string, err error) {
	m.EmailsSentTotal.WithLabelValues(template, statusLabel(err)).Inc()
}

func (m *Metrics) RecordCacheLookup(_ context.Context, cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) RecordWebhook(_ context.Context, eventType string, err error) {
	m.WebhookEventsTotal.WithLabelValues(eventType, statusLabel(err)).Inc()
}

// RecordDigestRun counts a digest pass and stamps its completion time
func (m *Metrics) RecordDigestRun(at time.Time, err error) {
	m.DigestRunsTotal.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		m.DigestLastRunUnixTS.Set(float64(at.Unix()))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel prefers the mux route template so path variables don't explode cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry) {
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
