package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/biolink/pkg/storage"
)

// RedisClient holds short-lived state: login codes and request counters.
type RedisClient struct {
	client *redis.Client
	config storage.Config
}

// NewRedisClient creates a new Redis client and verifies connectivity
func NewRedisClient(config storage.Config) (*RedisClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB >= 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client, config: config}, nil
}

func otpKey(email string) string {
	return "otp:" + email
}

// SaveOTP stores a code hash for email with a fresh attempt counter,
// replacing any code issued before.
func (c *RedisClient) SaveOTP(ctx context.Context, email, hash string, ttl time.Duration) error {
	key := otpKey(email)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hash, "attempts", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

// GetOTP returns the stored hash and failed attempt count for email.
func (c *RedisClient) GetOTP(ctx context.Context, email string) (string, int, error) {
	fields, err := c.client.HGetAll(ctx, otpKey(email)).Result()
	if err != nil {
		return "", 0, fmt.Errorf("redis hgetall failed: %w", err)
	}
	hash, ok := fields["hash"]
	if !ok {
		return "", 0, storage.ErrNotFound
	}

	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		attempts = 0
	}
	return hash, attempts, nil
}

// IncrOTPAttempts records a failed verification and returns the new count.
func (c *RedisClient) IncrOTPAttempts(ctx context.Context, email string) (int, error) {
	n, err := c.client.HIncrBy(ctx, otpKey(email), "attempts", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby failed: %w", err)
	}
	return int(n), nil
}

// DeleteOTP burns the code for email
func (c *RedisClient) DeleteOTP(ctx context.Context, email string) error {
	return c.client.Del(ctx, otpKey(email)).Err()
}

// Allow counts a hit against key in a fixed window and reports whether the
// count is still within limit.
func (c *RedisClient) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	key = "ratelimit:" + key
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr failed: %w", err)
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("redis expire failed: %w", err)
		}
	}
	return n <= int64(limit), nil
}

// TTL returns the remaining time to live of a key
func (c *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.client.TTL(ctx, key).Result()
}

// Ping checks Redis connectivity
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetClient returns the underlying Redis client
func (c *RedisClient) GetClient() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	err := c.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
