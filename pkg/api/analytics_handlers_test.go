package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/platinummonkey/biolink/pkg/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsHandlers_AdminSignups(t *testing.T) {
	rec := &spyRecorder{}
	s := newTestServer(Dependencies{
		Recorder: rec,
		Analytics: &mockAnalytics{adminSignupsFunc: func(_ context.Context, f analytics.GraphFilter) (*analytics.SignupGraph, error) {
			assert.Equal(t, "2025-01-01", f.StartDate)
			assert.Equal(t, "2025-01-03", f.EndDate)
			return &analytics.SignupGraph{
				FilterType: analytics.Daily,
				Data: []analytics.CountPoint{
					{Date: "01/01/2025", Key: "2025-01-01", Count: 2},
					{Date: "01/02/2025", Key: "2025-01-02", Count: 0},
					{Date: "01/03/2025", Key: "2025-01-03", Count: 1},
				},
			}, nil
		}},
	})

	w := doRequest(t, s, http.MethodGet, "/api/v1/admin/graphs/signups?startDate=2025-01-01&endDate=2025-01-03", "", tokenFor(t, adminID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var graph analytics.SignupGraph
	decodeBody(t, w, &graph)
	assert.Equal(t, analytics.Daily, graph.FilterType)
	assert.Len(t, graph.Data, 3)
	assert.Equal(t, []string{"graph:admin_signups:daily:success"}, rec.Events())
}

func TestAnalyticsHandlers_GraphFilterValidation(t *testing.T) {
	called := false
	s := newTestServer(Dependencies{
		Analytics: &mockAnalytics{adminEarningsFunc: func(context.Context, analytics.GraphFilter) (*analytics.EarningsGraph, error) {
			called = true
			return &analytics.EarningsGraph{}, nil
		}},
	})
	token := tokenFor(t, adminID)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"missing both", "", "startDate"},
		{"missing end", "?startDate=2025-01-01", "endDate"},
		{"unparsable", "?startDate=yesterday&endDate=2025-01-01", "startDate"},
		{"unparsable end", "?startDate=2025-01-01&endDate=2025-13-45", "endDate"},
		{"start after end", "?startDate=2025-02-01&endDate=2025-01-01", "startDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodGet, "/api/v1/admin/graphs/earnings"+tt.query, "", token)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var body struct {
				Details map[string]string `json:"details"`
			}
			decodeBody(t, w, &body)
			assert.Contains(t, body.Details, tt.field)
		})
	}
	assert.False(t, called, "service must not run on invalid filters")
}

func TestAnalyticsHandlers_MerchantEarningsUsesTokenMerchant(t *testing.T) {
	rec := &spyRecorder{}
	s := newTestServer(Dependencies{
		Recorder: rec,
		Analytics: &mockAnalytics{merchantEarningsFunc: func(_ context.Context, merchantID string, _ analytics.GraphFilter) (*analytics.EarningsGraph, error) {
			return &analytics.EarningsGraph{
				FilterType:    analytics.Weekly,
				Total:         42.5,
				TopPerformers: []analytics.TopPerformer{{ID: "u-1", Name: "Ann", Earnings: 42.5}},
				Data:          []analytics.EarningsPoint{{Date: "01/06/2025 - 01/12/2025", Key: merchantID, Earnings: 42.5}},
			}, nil
		}},
	})

	// the query parameter is ignored for merchants
	w := doRequest(t, s, http.MethodGet,
		"/api/v1/merchant/graphs/earnings?startDate=2025-01-06&endDate=2025-02-20&merchantId=m-other", "", tokenFor(t, merchantI))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var graph analytics.EarningsGraph
	decodeBody(t, w, &graph)
	assert.Equal(t, "m-shop", graph.Data[0].Key)
	assert.InDelta(t, 42.5, graph.Total, 1e-9)
	assert.Equal(t, []string{"graph:merchant_earnings:weekly:success"}, rec.Events())
}

func TestAnalyticsHandlers_AdminActsForMerchant(t *testing.T) {
	s := newTestServer(Dependencies{
		Analytics: &mockAnalytics{merchantSignupsFunc: func(_ context.Context, merchantID string, _ analytics.GraphFilter) (*analytics.SignupGraph, error) {
			return &analytics.SignupGraph{FilterType: analytics.Monthly, Data: []analytics.CountPoint{{Key: merchantID}}}, nil
		}},
	})
	token := tokenFor(t, adminID)

	w := doRequest(t, s, http.MethodGet, "/api/v1/merchant/graphs/signups?startDate=2024-01-01&endDate=2025-01-01&merchantId=m-9", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var graph analytics.SignupGraph
	decodeBody(t, w, &graph)
	assert.Equal(t, "m-9", graph.Data[0].Key)

	w = doRequest(t, s, http.MethodGet, "/api/v1/merchant/graphs/signups?startDate=2024-01-01&endDate=2025-01-01", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsHandlers_UpstreamFailure(t *testing.T) {
	rec := &spyRecorder{}
	s := newTestServer(Dependencies{
		Recorder: rec,
		Analytics: &mockAnalytics{adminSignupsFunc: func(context.Context, analytics.GraphFilter) (*analytics.SignupGraph, error) {
			return nil, fmt.Errorf("failed to load user signups: %w", errors.New("connection reset"))
		}},
	})

	w := doRequest(t, s, http.MethodGet, "/api/v1/admin/graphs/signups?startDate=2025-01-01&endDate=2025-01-03", "", tokenFor(t, adminID))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", errorMessage(t, w))
	assert.Equal(t, []string{"graph:admin_signups::error"}, rec.Events())
}

func TestAnalyticsHandlers_Dashboards(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestServer(Dependencies{
		Now: func() time.Time { return now },
		Analytics: &mockAnalytics{
			adminSummaryFunc: func(_ context.Context, at time.Time) (*analytics.AdminSummary, error) {
				assert.Equal(t, now, at)
				return &analytics.AdminSummary{TotalUsers: 10, UsersGrowth: "25.00"}, nil
			},
			merchantSummaryFunc: func(_ context.Context, merchantID string, at time.Time) (*analytics.MerchantSummary, error) {
				assert.Equal(t, "m-shop", merchantID)
				assert.Equal(t, now, at)
				return &analytics.MerchantSummary{TotalClicks: 7, ClicksGrowth: "0.00"}, nil
			},
		},
	})

	w := doRequest(t, s, http.MethodGet, "/api/v1/merchant/dashboard", "", tokenFor(t, merchantI))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalClicks":7,"clicksGrowth":"0.00","totalEarnings":0,"earningsGrowth":"","totalOffers":0,"offersGrowth":""}`, w.Body.String())

	w = doRequest(t, s, http.MethodGet, "/api/v1/admin/dashboard", "", tokenFor(t, adminID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalUsers":10,"usersGrowth":"25.00","totalMerchants":0,"merchantsGrowth":"","totalOffers":0,"offersGrowth":""}`, w.Body.String())
}
