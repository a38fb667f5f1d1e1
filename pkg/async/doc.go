// Package async runs bounded fan-out work.
//
//	errs := async.Batch(ctx, merchants, 4, time.Minute, func(ctx context.Context, m *storage.Merchant) error {
//		return send(ctx, m)
//	})
//	if n := async.Failed(errs); n > 0 {
//		...
//	}
package async
