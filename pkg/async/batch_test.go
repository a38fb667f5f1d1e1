package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_ResultsInInputOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	errs := Batch(context.Background(), items, 2, 0, func(_ context.Context, n int) error {
		if n%2 == 0 {
			return errors.New("even")
		}
		return nil
	})

	require.Len(t, errs, 5)
	assert.NoError(t, errs[0])
	assert.EqualError(t, errs[1], "even")
	assert.NoError(t, errs[2])
	assert.EqualError(t, errs[3], "even")
	assert.Equal(t, 2, Failed(errs))
}

func TestBatch_LimitsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	Batch(context.Background(), items, 3, 0, func(context.Context, int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestBatch_PerItemTimeout(t *testing.T) {
	errs := Batch(context.Background(), []string{"slow"}, 1, 10*time.Millisecond, func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
}

func TestBatch_RecoversPanics(t *testing.T) {
	errs := Batch(context.Background(), []string{"a", "b"}, 0, 0, func(_ context.Context, s string) error {
		if s == "a" {
			panic("kaboom")
		}
		return nil
	})

	assert.EqualError(t, errs[0], "panic: kaboom")
	assert.NoError(t, errs[1])
}

func TestBatch_CanceledContextSkipsWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	errs := Batch(ctx, []int{1, 2}, 1, 0, func(context.Context, int) error {
		calls.Add(1)
		return nil
	})

	assert.Zero(t, calls.Load())
	assert.ErrorIs(t, errs[0], context.Canceled)
	assert.Equal(t, 2, Failed(errs))
}
