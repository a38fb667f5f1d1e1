package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/platinummonkey/biolink/pkg/storage"
)

// setupRedisClientTest creates a miniredis instance and returns the client and cleanup function
func setupRedisClientTest(t *testing.T) (*RedisClient, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	config := storage.Config{
		RedisURL:        "redis://" + mr.Addr(),
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
	}

	client, err := NewRedisClient(config)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create Redis client: %v", err)
	}

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, mr, cleanup
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(storage.Config{RedisURL: "not a url"})
	if err == nil {
		t.Fatal("Expected error for invalid URL")
	}
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisClient(storage.Config{RedisURL: "redis://" + addr}); err == nil {
		t.Fatal("Expected error for unreachable server")
	}
}

func TestOTPLifecycle(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()
	ctx := context.Background()

	if err := client.SaveOTP(ctx, "ada@example.com", "hash-1", 10*time.Minute); err != nil {
		t.Fatalf("SaveOTP failed: %v", err)
	}

	if !mr.Exists("otp:ada@example.com") {
		t.Fatal("Expected otp key to exist")
	}
	if ttl := mr.TTL("otp:ada@example.com"); ttl != 10*time.Minute {
		t.Errorf("Expected TTL 10m, got %v", ttl)
	}

	hash, attempts, err := client.GetOTP(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetOTP failed: %v", err)
	}
	if hash != "hash-1" || attempts != 0 {
		t.Errorf("Expected hash-1/0, got %s/%d", hash, attempts)
	}

	for i := 1; i <= 2; i++ {
		n, err := client.IncrOTPAttempts(ctx, "ada@example.com")
		if err != nil {
			t.Fatalf("IncrOTPAttempts failed: %v", err)
		}
		if n != i {
			t.Errorf("Expected %d attempts, got %d", i, n)
		}
	}

	// re-issuing resets the counter
	if err := client.SaveOTP(ctx, "ada@example.com", "hash-2", time.Minute); err != nil {
		t.Fatalf("SaveOTP failed: %v", err)
	}
	hash, attempts, _ = client.GetOTP(ctx, "ada@example.com")
	if hash != "hash-2" || attempts != 0 {
		t.Errorf("Expected hash-2/0 after reissue, got %s/%d", hash, attempts)
	}

	if err := client.DeleteOTP(ctx, "ada@example.com"); err != nil {
		t.Fatalf("DeleteOTP failed: %v", err)
	}
	if _, _, err := client.GetOTP(ctx, "ada@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestOTPExpires(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()
	ctx := context.Background()

	if err := client.SaveOTP(ctx, "ada@example.com", "hash", time.Minute); err != nil {
		t.Fatalf("SaveOTP failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, _, err := client.GetOTP(ctx, "ada@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestAllow(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := client.Allow(ctx, "otp:1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !ok {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}

	ok, _ := client.Allow(ctx, "otp:1.2.3.4", 3, time.Minute)
	if ok {
		t.Error("Expected fourth request to be rejected")
	}

	mr.FastForward(time.Minute + time.Second)
	ok, _ = client.Allow(ctx, "otp:1.2.3.4", 3, time.Minute)
	if !ok {
		t.Error("Expected window to reset")
	}
}

func TestPingAndClose(t *testing.T) {
	client, _, cleanup := setupRedisClientTest(t)
	defer cleanup()

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if client.GetClient() == nil {
		t.Error("Expected underlying client")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	// closing twice is harmless
	if err := client.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
