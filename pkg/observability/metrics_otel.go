package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	graphBuilds   metric.Int64Counter
	graphDuration metric.Float64Histogram
	otpEvents     metric.Int64Counter
	emailsSent    metric.Int64Counter
	cacheLookups  metric.Int64Counter
	webhookEvents metric.Int64Counter
}

// NewOTelMetrics creates a new OTel metrics instance from the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/platinummonkey/biolink")

	m := &OTelMetrics{}
	var err error

	m.graphBuilds, err = meter.Int64Counter(
		"biolink.graph.builds",
		metric.WithDescription("Dashboard graphs built"),
		metric.WithUnit("{graph}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph_builds counter: %w", err)
	}

	m.graphDuration, err = meter.Float64Histogram(
		"biolink.graph.duration",
		metric.WithDescription("Time spent fetching and bucketing a graph"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph_duration histogram: %w", err)
	}

	m.otpEvents, err = meter.Int64Counter(
		"biolink.otp.events",
		metric.WithDescription("Login code issues and verifications"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otp_events counter: %w", err)
	}

	m.emailsSent, err = meter.Int64Counter(
		"biolink.emails.sent",
		metric.WithDescription("Transactional emails"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create emails_sent counter: %w", err)
	}

	m.cacheLookups, err = meter.Int64Counter(
		"biolink.cache.lookups",
		metric.WithDescription("In-process cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache_lookups counter: %w", err)
	}

	m.webhookEvents, err = meter.Int64Counter(
		"biolink.billing.webhook.events",
		metric.WithDescription("Stripe webhook events processed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook_events counter: %w", err)
	}

	return m, nil
}

func errorAttr(err error) attribute.KeyValue {
	return attribute.Bool("error", err != nil)
}

// RecordGraph records a graph build
func (m *OTelMetrics) RecordGraph(ctx context.Context, graph, granularity string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("graph", graph),
		attribute.String("granularity", granularity),
		errorAttr(err),
	)
	m.graphBuilds.Add(ctx, 1, attrs)
	m.graphDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *OTelMetrics) RecordOTP(ctx context.Context, stage, result string) {
	m.otpEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("otp.stage", stage),
		attribute.String("otp.result", result),
	))
}

func (m *OTelMetrics) RecordEmail(ctx context.Context, template string, err error) {
	m.emailsSent.Add(ctx, 1, metric.WithAttributes(attribute.String("email.template", template), errorAttr(err)))
}

func (m *OTelMetrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", cache), attribute.Bool("cache.hit", hit)))
}

func (m *OTelMetrics) RecordWebhook(ctx context.Context, eventType string, err error) {
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType), errorAttr(err)))
}
