package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

// ShutdownManager drains the HTTP server, then runs registered closers
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration

	mu    sync.Mutex
	funcs []namedShutdown
}

type namedShutdown struct {
	name string
	fn   ShutdownFunc
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = NewLogger(InfoLevel, nil)
	}
	return &ShutdownManager{
		logger:  logger,
		server:  server,
		timeout: timeout,
	}
}

// Register adds a closer; nil functions are ignored
func (sm *ShutdownManager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, namedShutdown{name: name, fn: fn})
}

// Run blocks until ctx is done, then shuts down
func (sm *ShutdownManager) Run(ctx context.Context) error {
	<-ctx.Done()
	sm.logger.Info("starting graceful shutdown")
	return sm.Shutdown()
}

// Shutdown drains the server, then runs the closers one at a time in reverse
// registration order, so a closer registered after its dependencies stops
// before them. Everything shares one timeout.
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("http server shutdown failed")
			return fmt.Errorf("failed to drain http server: %w", err)
		}
		sm.logger.Info("http server drained")
	}

	sm.mu.Lock()
	closers := append([]namedShutdown(nil), sm.funcs...)
	sm.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := sm.close(ctx, closers[i]); err != nil {
				errs = append(errs, err)
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		sm.logger.Info("graceful shutdown complete")
		return nil
	case <-ctx.Done():
		sm.logger.Warn("shutdown timeout reached")
		return errors.New("shutdown timeout reached")
	}
}

func (sm *ShutdownManager) close(ctx context.Context, c namedShutdown) (err error) {
	defer RecoverPanicWithCallback(sm.logger, "shutdown "+c.name, func() {
		err = fmt.Errorf("%s: panic during shutdown", c.name)
	})
	if err := c.fn(ctx); err != nil {
		sm.logger.WithError(err).WithField("closer", c.name).Error("shutdown step failed")
		return fmt.Errorf("%s: %w", c.name, err)
	}
	sm.logger.WithField("closer", c.name).Debug("closed")
	return nil
}
