package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/platinummonkey/biolink/pkg/config"
	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/platinummonkey/biolink/pkg/storage/mongodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewStatusServer(t *testing.T) {
	cfg := config.Default()
	cfg.Server.HealthPort = "9191"
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	metrics.RecordDigestRun(time.Now(), nil)

	srv := newStatusServer(cfg, (*mongodb.Store)(nil), registry)
	assert.Equal(t, "0.0.0.0:9191", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "biolink_digest")

	cfg.Observability.MetricsEnabled = false
	rec = httptest.NewRecorder()
	newStatusServer(cfg, nil, registry).Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
