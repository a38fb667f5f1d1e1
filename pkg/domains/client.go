package domains

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/biolink/pkg/observability"
)

const cacheName = "domains"

// Config holds reseller connection settings
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RetryMax  int
	CacheSize int
	CacheTTL  time.Duration
}

// DefaultConfig returns default client settings
func DefaultConfig() Config {
	return Config{
		Timeout:   10 * time.Second,
		RetryMax:  3,
		CacheSize: 1024,
		CacheTTL:  5 * time.Minute,
	}
}

// Client talks to the domain reseller JSON API
type Client struct {
	baseURL  *url.URL
	apiKey   string
	http     *retryablehttp.Client
	cache    *lru.LRU[string, Availability]
	logger   *observability.Logger
	recorder observability.Recorder
}

// NewClient creates a reseller client
func NewClient(cfg Config, logger *observability.Logger, recorder observability.Recorder) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid reseller base URL %q", cfg.BaseURL)
	}

	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaults.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if recorder == nil {
		recorder = observability.Recorders{}
	}
	logger = logger.WithField("component", "domains")

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.RetryMax
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = cfg.Timeout
	httpClient.Logger = leveledLogger{logger}
	// hand the final response back so reseller error bodies can be decoded
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:  base,
		apiKey:   cfg.APIKey,
		http:     httpClient,
		cache:    lru.NewLRU[string, Availability](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:   logger,
		recorder: recorder,
	}, nil
}

// CheckAvailability reports whether domain can be registered and its price.
// Answers are cached briefly per domain.
func (c *Client) CheckAvailability(ctx context.Context, domain string) (*Availability, error) {
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}
	domain = Normalize(domain)

	if cached, ok := c.cache.Get(domain); ok {
		c.recorder.RecordCacheLookup(ctx, cacheName, true)
		return &cached, nil
	}
	c.recorder.RecordCacheLookup(ctx, cacheName, false)

	var out Availability
	q := url.Values{"domain": []string{domain}}
	if err := c.do(ctx, http.MethodGet, "v1/domains/check", q, nil, "", &out); err != nil {
		return nil, err
	}
	if out.Domain == "" {
		out.Domain = domain
	}

	c.cache.Add(domain, out)
	return &out, nil
}

// Register buys the domain. Retries reuse one idempotency key so a retried
// order is never placed twice.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	if err := ValidateDomain(req.Domain); err != nil {
		return nil, err
	}
	req.Domain = Normalize(req.Domain)
	if req.Years == 0 {
		req.Years = 1
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registration: %w", err)
	}

	var out Registration
	err = c.do(ctx, http.MethodPost, "v1/domains", nil, body, uuid.NewString(), &out)
	// any answer about this domain is now stale
	c.cache.Remove(req.Domain)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"domain":      out.Domain,
		"order_id":    out.OrderID,
		"merchant_id": req.MerchantID,
	}).Info("domain registered")
	return &out, nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, idempotencyKey string, out interface{}) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build reseller request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("%w: %v", ErrReseller, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
		msg := eb.Message
		if msg == "" {
			msg = eb.Error
		}
		switch resp.StatusCode {
		case http.StatusConflict:
			return ErrDomainUnavailable
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s", ErrInvalidDomain, msg)
		default:
			return fmt.Errorf("%w: status %d: %s", ErrReseller, resp.StatusCode, msg)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrReseller, err)
	}
	return nil
}

// leveledLogger adapts observability.Logger to retryablehttp.LeveledLogger
type leveledLogger struct {
	logger *observability.Logger
}

func (l leveledLogger) with(keysAndValues []interface{}) *observability.Logger {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return l.logger.WithFields(fields)
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Info(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Warn(msg)
}
