package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/biolink/pkg/analytics"
	"github.com/platinummonkey/biolink/pkg/api"
	"github.com/platinummonkey/biolink/pkg/config"
	"github.com/platinummonkey/biolink/pkg/notify"
	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestGraphsAreComplete(t *testing.T) {
	var closers []Closer
	var servers Servers
	require.NoError(t, fx.ValidateApp(Web, CollectClosers(&closers), fx.Populate(&servers)))

	var mailer *notify.Mailer
	var service *analytics.Service
	require.NoError(t, fx.ValidateApp(Core, CollectClosers(&closers), fx.Populate(&mailer, &service)))
}

func TestNewRecorder(t *testing.T) {
	cfg := config.Default()
	_, metrics := NewMetrics()

	rec, err := NewRecorder(recorderIn{Config: cfg, Metrics: metrics})
	require.NoError(t, err)
	assert.Len(t, rec.(observability.Recorders), 1)

	cfg.Observability.MetricsEnabled = false
	rec, err = NewRecorder(recorderIn{Config: cfg, Metrics: metrics})
	require.NoError(t, err)
	assert.Empty(t, rec.(observability.Recorders))
}

func TestOptionalServices(t *testing.T) {
	cfg := config.Default()
	logger := testLogger()

	assert.False(t, NewMailer(cfg, logger, nil).Enabled())
	assert.Nil(t, NewBilling(cfg, nil, logger))

	registrar, err := NewDomains(cfg, logger, nil)
	require.NoError(t, err)
	assert.Nil(t, registrar)

	cfg.Email.ResendAPIKey = "re_test"
	assert.True(t, NewMailer(cfg, logger, nil).Enabled())

	cfg.Domains.BaseURL = "https://reseller.example/api/"
	registrar, err = NewDomains(cfg, logger, nil)
	require.NoError(t, err)
	assert.NotNil(t, registrar)
}

func TestNewHTTPServers(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	registry, _ := NewMetrics()
	apiServer := api.NewServer(api.Dependencies{Logger: testLogger()})
	health := observability.NewHealthChecker("test")

	servers := NewHTTPServers(cfg, apiServer, health, registry, nil)
	assert.Equal(t, "127.0.0.1:8080", servers.API.Addr)
	assert.Equal(t, "127.0.0.1:9090", servers.Health.Addr)
	assert.Equal(t, cfg.Server.ReadTimeout, servers.API.ReadTimeout)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/metrics"} {
		w := httptest.NewRecorder()
		servers.Health.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	cfg.Observability.MetricsEnabled = false
	servers = NewHTTPServers(cfg, apiServer, health, registry, nil)
	w := httptest.NewRecorder()
	servers.Health.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
