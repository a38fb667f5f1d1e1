package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// User is a platform account created on first OTP login.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Role       string    `json:"role"`
	ReferredBy string    `json:"referredBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Merchant is a business account that publishes offers.
type Merchant struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	StripeCustomerID string    `json:"stripeCustomerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// UserStore persists user accounts
type UserStore interface {
	UpsertUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
}

// MerchantStore persists merchant accounts
type MerchantStore interface {
	GetMerchant(ctx context.Context, id string) (*Merchant, error)
	MerchantByUserID(ctx context.Context, userID string) (*Merchant, error)
	ListMerchants(ctx context.Context) ([]*Merchant, error)
	SetStripeCustomerID(ctx context.Context, merchantID, customerID string) error
}

// HealthChecker is implemented by backends that can report connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Config for storage backends
type Config struct {
	// MongoDB config
	MongoURI      string        `yaml:"mongo_uri"`
	MongoDatabase string        `yaml:"mongo_database"`
	MongoTimeout  time.Duration `yaml:"mongo_timeout"`
	MongoMaxPool  uint64        `yaml:"mongo_max_pool"`

	// Redis config
	RedisURL        string `yaml:"redis_url"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "biolink",
		MongoTimeout:    10 * time.Second,
		MongoMaxPool:    50,
		RedisURL:        "redis://localhost:6379/0",
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
	}
}
