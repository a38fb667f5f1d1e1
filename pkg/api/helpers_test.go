package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/platinummonkey/biolink/pkg/analytics"
	"github.com/platinummonkey/biolink/pkg/auth"
	"github.com/platinummonkey/biolink/pkg/billing"
	"github.com/platinummonkey/biolink/pkg/domains"
	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/stretchr/testify/require"
)

var errNotImplemented = errors.New("not implemented")

type mockLogin struct {
	requestCodeFunc func(ctx context.Context, email string) error
	verifyCodeFunc  func(ctx context.Context, email, code string) (*auth.Session, error)
}

func (m *mockLogin) RequestCode(ctx context.Context, email string) error {
	if m.requestCodeFunc != nil {
		return m.requestCodeFunc(ctx, email)
	}
	return errNotImplemented
}

func (m *mockLogin) VerifyCode(ctx context.Context, email, code string) (*auth.Session, error) {
	if m.verifyCodeFunc != nil {
		return m.verifyCodeFunc(ctx, email, code)
	}
	return nil, errNotImplemented
}

type mockAnalytics struct {
	adminSignupsFunc     func(ctx context.Context, f analytics.GraphFilter) (*analytics.SignupGraph, error)
	merchantSignupsFunc  func(ctx context.Context, merchantID string, f analytics.GraphFilter) (*analytics.SignupGraph, error)
	adminEarningsFunc    func(ctx context.Context, f analytics.GraphFilter) (*analytics.EarningsGraph, error)
	merchantEarningsFunc func(ctx context.Context, merchantID string, f analytics.GraphFilter) (*analytics.EarningsGraph, error)
	adminSummaryFunc     func(ctx context.Context, now time.Time) (*analytics.AdminSummary, error)
	merchantSummaryFunc  func(ctx context.Context, merchantID string, now time.Time) (*analytics.MerchantSummary, error)
}

func (m *mockAnalytics) AdminSignupGraph(ctx context.Context, f analytics.GraphFilter) (*analytics.SignupGraph, error) {
	if m.adminSignupsFunc != nil {
		return m.adminSignupsFunc(ctx, f)
	}
	return nil, errNotImplemented
}

func (m *mockAnalytics) MerchantSignupGraph(ctx context.Context, merchantID string, f analytics.GraphFilter) (*analytics.SignupGraph, error) {
	if m.merchantSignupsFunc != nil {
		return m.merchantSignupsFunc(ctx, merchantID, f)
	}
	return nil, errNotImplemented
}

func (m *mockAnalytics) AdminEarningsGraph(ctx context.Context, f analytics.GraphFilter) (*analytics.EarningsGraph, error) {
	if m.adminEarningsFunc != nil {
		return m.adminEarningsFunc(ctx, f)
	}
	return nil, errNotImplemented
}

func (m *mockAnalytics) MerchantEarningsGraph(ctx context.Context, merchantID string, f analytics.GraphFilter) (*analytics.EarningsGraph, error) {
	if m.merchantEarningsFunc != nil {
		return m.merchantEarningsFunc(ctx, merchantID, f)
	}
	return nil, errNotImplemented
}

func (m *mockAnalytics) AdminDashboardSummary(ctx context.Context, now time.Time) (*analytics.AdminSummary, error) {
	if m.adminSummaryFunc != nil {
		return m.adminSummaryFunc(ctx, now)
	}
	return nil, errNotImplemented
}

func (m *mockAnalytics) MerchantDashboardSummary(ctx context.Context, merchantID string, now time.Time) (*analytics.MerchantSummary, error) {
	if m.merchantSummaryFunc != nil {
		return m.merchantSummaryFunc(ctx, merchantID, now)
	}
	return nil, errNotImplemented
}

type mockBilling struct {
	createFunc  func(ctx context.Context, merchantID string, req *billing.CreateSubscriptionRequest) (*billing.Subscription, error)
	getFunc     func(ctx context.Context, merchantID string) (*billing.Subscription, error)
	cancelFunc  func(ctx context.Context, merchantID string, atPeriodEnd bool) (*billing.Subscription, error)
	webhookFunc func(ctx context.Context, payload []byte, signature string) error
}

func (m *mockBilling) Plans() []billing.Plan {
	plans := billing.DefaultPlans(nil)
	return []billing.Plan{plans[billing.PlanFree], plans[billing.PlanPro], plans[billing.PlanBusiness]}
}

func (m *mockBilling) CreateSubscription(ctx context.Context, merchantID string, req *billing.CreateSubscriptionRequest) (*billing.Subscription, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, merchantID, req)
	}
	return nil, errNotImplemented
}

func (m *mockBilling) GetSubscription(ctx context.Context, merchantID string) (*billing.Subscription, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, merchantID)
	}
	return nil, errNotImplemented
}

func (m *mockBilling) CancelSubscription(ctx context.Context, merchantID string, atPeriodEnd bool) (*billing.Subscription, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, merchantID, atPeriodEnd)
	}
	return nil, errNotImplemented
}

func (m *mockBilling) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if m.webhookFunc != nil {
		return m.webhookFunc(ctx, payload, signature)
	}
	return errNotImplemented
}

type mockDomains struct {
	checkFunc    func(ctx context.Context, domain string) (*domains.Availability, error)
	registerFunc func(ctx context.Context, req domains.RegisterRequest) (*domains.Registration, error)
}

func (m *mockDomains) CheckAvailability(ctx context.Context, domain string) (*domains.Availability, error) {
	if m.checkFunc != nil {
		return m.checkFunc(ctx, domain)
	}
	return nil, errNotImplemented
}

func (m *mockDomains) Register(ctx context.Context, req domains.RegisterRequest) (*domains.Registration, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, errNotImplemented
}

// spyRecorder captures recorder calls as "name:label:status" strings
type spyRecorder struct {
	mu     sync.Mutex
	events []string
}

func (s *spyRecorder) add(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (s *spyRecorder) RecordGraph(_ context.Context, graph, granularity string, _ time.Duration, err error) {
	s.add("graph:" + graph + ":" + granularity + ":" + status(err))
}

func (s *spyRecorder) RecordOTP(_ context.Context, stage, result string) {
	s.add("otp:" + stage + ":" + result)
}

func (s *spyRecorder) RecordEmail(_ context.Context, template string, err error) {
	s.add("email:" + template + ":" + status(err))
}

func (s *spyRecorder) RecordCacheLookup(_ context.Context, cache string, hit bool) {
	s.add("cache:" + cache)
}

func (s *spyRecorder) RecordWebhook(_ context.Context, eventType string, err error) {
	s.add("webhook:" + eventType + ":" + status(err))
}

func (s *spyRecorder) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

var (
	adminID    = auth.Identity{UserID: "u-admin", Email: "admin@biolink.app", Role: auth.RoleAdmin}
	merchantI  = auth.Identity{UserID: "u-shop", Email: "shop@example.com", Role: auth.RoleMerchant, MerchantID: "m-shop"}
	plainUser  = auth.Identity{UserID: "u-1", Email: "user@example.com", Role: auth.RoleUser}
	testIssuer = auth.NewTokenIssuer("api-test-secret", time.Hour, "biolink")
)

// newTestServer fills unset dependencies with mocks that fail loudly
func newTestServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	if deps.Tokens == nil {
		deps.Tokens = testIssuer
	}
	if deps.Login == nil {
		deps.Login = &mockLogin{}
	}
	if deps.Analytics == nil {
		deps.Analytics = &mockAnalytics{}
	}
	return NewServer(deps)
}

func tokenFor(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, _, err := testIssuer.Issue(id)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, w, &body)
	return body.Error
}

func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
