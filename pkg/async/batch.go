package async

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Batch runs fn for every item with at most workers calls in flight.
// Each call gets its own timeout (zero means none) and a panic inside fn is
// returned as that item's error. The result has one entry per item, nil on
// success, in input order.
func Batch[T any](ctx context.Context, items []T, workers int, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	errs := make([]error, len(items))
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, item := range items {
		g.Go(func() error {
			errs[i] = call(ctx, timeout, item, fn)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func call[T any](ctx context.Context, timeout time.Duration, item T, fn func(context.Context, T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx, item)
}

// Failed counts the non-nil entries of a Batch result
func Failed(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
