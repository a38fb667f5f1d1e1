package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *Logger {
	return NewLogger(ErrorLevel, &bytes.Buffer{})
}

func TestShutdownManager_ClosesInReverseOrder(t *testing.T) {
	sm := NewShutdownManager(quietLogger(), nil, time.Second)

	var order []string
	for _, name := range []string{"mongo", "redis", "cron"} {
		sm.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	sm.Register("nil", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, sm.Run(ctx))
	assert.Equal(t, []string{"cron", "redis", "mongo"}, order)
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(quietLogger(), nil, time.Second)
	boom := errors.New("boom")

	sm.Register("ok", func(context.Context) error { return nil })
	sm.Register("mongo", func(context.Context) error { return boom })
	sm.Register("panicky", func(context.Context) error { panic("closed twice") })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "panicky")
	assert.Contains(t, err.Error(), "mongo: boom")
}

func TestShutdownManager_Timeout(t *testing.T) {
	sm := NewShutdownManager(quietLogger(), nil, 20*time.Millisecond)
	sm.Register("slow", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	err := sm.Shutdown()
	assert.EqualError(t, err, "shutdown timeout reached")
}

func TestShutdownManager_DrainsServer(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Start()
	defer srv.Close()

	sm := NewShutdownManager(quietLogger(), srv.Config, time.Second)
	var closed atomic.Bool
	sm.Register("store", func(context.Context) error {
		closed.Store(true)
		return nil
	})

	require.NoError(t, sm.Shutdown())
	assert.True(t, closed.Load())

	_, err := http.Get(srv.URL)
	assert.Error(t, err)
}

func TestNewShutdownManager_Defaults(t *testing.T) {
	sm := NewShutdownManager(nil, nil, 0)
	assert.Equal(t, 30*time.Second, sm.timeout)
	assert.NotNil(t, sm.logger)
}
