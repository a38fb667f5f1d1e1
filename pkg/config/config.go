package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/biolink/pkg/storage"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       storage.Config      `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Email         EmailConfig         `yaml:"email"`
	Stripe        StripeConfig        `yaml:"stripe"`
	Domains       DomainsConfig       `yaml:"domains"`
	Observability ObservabilityConfig `yaml:"observability"`
	Digest        DigestConfig        `yaml:"digest"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// AuthConfig holds login and session settings
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	Issuer         string        `yaml:"issuer"`
	OTPTTL         time.Duration `yaml:"otp_ttl"`
	OTPLength      int           `yaml:"otp_length"`
	OTPMaxAttempts int           `yaml:"otp_max_attempts"`
	OTPRateLimit   int           `yaml:"otp_rate_limit"`
	OTPRateWindow  time.Duration `yaml:"otp_rate_window"`
}

// EmailConfig holds transactional email settings
type EmailConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	From         string `yaml:"from"`
}

// StripeConfig holds billing settings
type StripeConfig struct {
	SecretKey       string `yaml:"secret_key"`
	WebhookSecret   string `yaml:"webhook_secret"`
	ProPriceID      string `yaml:"pro_price_id"`
	BusinessPriceID string `yaml:"business_price_id"`
}

// DomainsConfig holds domain reseller settings
type DomainsConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	RetryMax  int           `yaml:"retry_max"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// DigestConfig holds the weekly earnings digest job settings
type DigestConfig struct {
	Schedule    string `yaml:"schedule"`
	Concurrency int    `yaml:"concurrency"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Auth: AuthConfig{
			TokenTTL:       7 * 24 * time.Hour,
			Issuer:         "biolink",
			OTPTTL:         10 * time.Minute,
			OTPLength:      6,
			OTPMaxAttempts: 5,
			OTPRateLimit:   5,
			OTPRateWindow:  15 * time.Minute,
		},
		Email: EmailConfig{
			From: "biolink <no-reply@biolink.app>",
		},
		Domains: DomainsConfig{
			Timeout:   10 * time.Second,
			RetryMax:  3,
			CacheSize: 1024,
			CacheTTL:  5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "biolink",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
		Digest: DigestConfig{
			Schedule:    "0 8 * * 1",
			Concurrency: 4,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by BIOLINK_CONFIG_FILE, then BIOLINK_* environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("BIOLINK_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("BIOLINK_HOST", s.Host)
	s.Port = getEnv("BIOLINK_PORT", s.Port)
	s.HealthPort = getEnv("BIOLINK_HEALTH_PORT", s.HealthPort)
	s.ReadTimeout = getEnvDuration("BIOLINK_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("BIOLINK_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("BIOLINK_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("BIOLINK_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = int64(getEnvInt("BIOLINK_MAX_BODY_BYTES", int(s.MaxBodyBytes)))
	s.CORSOrigins = getEnvList("BIOLINK_CORS_ORIGINS", s.CORSOrigins)

	st := &c.Storage
	st.MongoURI = getEnv("BIOLINK_MONGO_URI", st.MongoURI)
	st.MongoDatabase = getEnv("BIOLINK_MONGO_DATABASE", st.MongoDatabase)
	st.MongoTimeout = getEnvDuration("BIOLINK_MONGO_TIMEOUT", st.MongoTimeout)
	st.MongoMaxPool = uint64(getEnvInt("BIOLINK_MONGO_MAX_POOL", int(st.MongoMaxPool)))
	st.RedisURL = getEnv("BIOLINK_REDIS_URL", st.RedisURL)
	st.RedisPassword = getEnv("BIOLINK_REDIS_PASSWORD", st.RedisPassword)
	st.RedisDB = getEnvInt("BIOLINK_REDIS_DB", st.RedisDB)
	st.RedisMaxRetries = getEnvInt("BIOLINK_REDIS_MAX_RETRIES", st.RedisMaxRetries)
	st.RedisPoolSize = getEnvInt("BIOLINK_REDIS_POOL_SIZE", st.RedisPoolSize)

	a := &c.Auth
	a.JWTSecret = getEnv("BIOLINK_JWT_SECRET", a.JWTSecret)
	a.TokenTTL = getEnvDuration("BIOLINK_TOKEN_TTL", a.TokenTTL)
	a.Issuer = getEnv("BIOLINK_TOKEN_ISSUER", a.Issuer)
	a.OTPTTL = getEnvDuration("BIOLINK_OTP_TTL", a.OTPTTL)
	a.OTPLength = getEnvInt("BIOLINK_OTP_LENGTH", a.OTPLength)
	a.OTPMaxAttempts = getEnvInt("BIOLINK_OTP_MAX_ATTEMPTS", a.OTPMaxAttempts)
	a.OTPRateLimit = getEnvInt("BIOLINK_OTP_RATE_LIMIT", a.OTPRateLimit)
	a.OTPRateWindow = getEnvDuration("BIOLINK_OTP_RATE_WINDOW", a.OTPRateWindow)

	c.Email.ResendAPIKey = getEnv("BIOLINK_RESEND_API_KEY", c.Email.ResendAPIKey)
	c.Email.From = getEnv("BIOLINK_EMAIL_FROM", c.Email.From)

	c.Stripe.SecretKey = getEnv("BIOLINK_STRIPE_SECRET_KEY", c.Stripe.SecretKey)
	c.Stripe.WebhookSecret = getEnv("BIOLINK_STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret)
	c.Stripe.ProPriceID = getEnv("BIOLINK_STRIPE_PRO_PRICE_ID", c.Stripe.ProPriceID)
	c.Stripe.BusinessPriceID = getEnv("BIOLINK_STRIPE_BUSINESS_PRICE_ID", c.Stripe.BusinessPriceID)

	d := &c.Domains
	d.BaseURL = getEnv("BIOLINK_DOMAINS_URL", d.BaseURL)
	d.APIKey = getEnv("BIOLINK_DOMAINS_API_KEY", d.APIKey)
	d.Timeout = getEnvDuration("BIOLINK_DOMAINS_TIMEOUT", d.Timeout)
	d.RetryMax = getEnvInt("BIOLINK_DOMAINS_RETRY_MAX", d.RetryMax)
	d.CacheSize = getEnvInt("BIOLINK_DOMAINS_CACHE_SIZE", d.CacheSize)
	d.CacheTTL = getEnvDuration("BIOLINK_DOMAINS_CACHE_TTL", d.CacheTTL)

	o := &c.Observability
	o.LogLevel = getEnv("BIOLINK_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("BIOLINK_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("BIOLINK_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("BIOLINK_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("BIOLINK_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("BIOLINK_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("BIOLINK_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("BIOLINK_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)

	c.Digest.Schedule = getEnv("BIOLINK_DIGEST_SCHEDULE", c.Digest.Schedule)
	c.Digest.Concurrency = getEnvInt("BIOLINK_DIGEST_CONCURRENCY", c.Digest.Concurrency)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.MongoURI == "" {
		return fmt.Errorf("mongo URI is required")
	}
	if c.Storage.MongoDatabase == "" {
		return fmt.Errorf("mongo database is required")
	}
	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.OTPTTL <= 0 {
		return fmt.Errorf("token and OTP TTLs must be positive")
	}
	if c.Auth.OTPLength < 4 || c.Auth.OTPLength > 10 {
		return fmt.Errorf("OTP length must be between 4 and 10, got %d", c.Auth.OTPLength)
	}

	if c.Email.ResendAPIKey != "" && c.Email.From == "" {
		return fmt.Errorf("email sender address is required when email is enabled")
	}
	if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required when billing is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	if _, err := cron.ParseStandard(c.Digest.Schedule); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", c.Digest.Schedule, err)
	}
	return nil
}

// BillingEnabled reports whether Stripe is configured
func (c *Config) BillingEnabled() bool { return c.Stripe.SecretKey != "" }

// DomainsEnabled reports whether a domain reseller is configured
func (c *Config) DomainsEnabled() bool { return c.Domains.BaseURL != "" }

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
