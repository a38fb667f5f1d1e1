package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/biolink/pkg/analytics"
	"github.com/platinummonkey/biolink/pkg/async"
	"github.com/platinummonkey/biolink/pkg/notify"
	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/platinummonkey/biolink/pkg/storage"
)

const (
	digestDays         = 7
	perMerchantTimeout = time.Minute
)

// MerchantLister lists every merchant account
type MerchantLister interface {
	ListMerchants(ctx context.Context) ([]*storage.Merchant, error)
}

// EarningsGrapher builds a merchant's earnings graph
type EarningsGrapher interface {
	MerchantEarningsGraph(ctx context.Context, merchantID string, filter analytics.GraphFilter) (*analytics.EarningsGraph, error)
}

// DigestSender emails a digest
type DigestSender interface {
	SendEarningsDigest(ctx context.Context, to string, digest notify.Digest) error
}

// Runner sends one earnings digest per merchant
type Runner struct {
	merchants   MerchantLister
	graphs      EarningsGrapher
	mailer      DigestSender
	logger      *observability.Logger
	concurrency int
	now         func() time.Time
}

// NewRunner creates a digest runner
func NewRunner(merchants MerchantLister, graphs EarningsGrapher, mailer DigestSender, logger *observability.Logger, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{
		merchants:   merchants,
		graphs:      graphs,
		mailer:      mailer,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// RunOnce emails the last seven days of earnings to every merchant with an
// email address. A failure for one merchant does not stop the others.
func (r *Runner) RunOnce(ctx context.Context) error {
	merchants, err := r.merchants.ListMerchants(ctx)
	if err != nil {
		return fmt.Errorf("failed to list merchants: %w", err)
	}

	window := analytics.LastDays(r.now().UTC(), digestDays)
	filter := analytics.GraphFilter{
		StartDate: window.Start.Format("2006-01-02"),
		EndDate:   window.End.Format("2006-01-02"),
	}

	var recipients []*storage.Merchant
	for _, m := range merchants {
		if m.Email != "" {
			recipients = append(recipients, m)
		}
	}
	skipped := len(merchants) - len(recipients)

	errs := async.Batch(ctx, recipients, r.concurrency, perMerchantTimeout, func(ctx context.Context, m *storage.Merchant) error {
		return r.sendOne(ctx, m, window, filter)
	})
	for i, err := range errs {
		if err != nil {
			r.logger.WithError(err).WithField("merchant_id", recipients[i].ID).Error("digest failed")
		}
	}
	failed := async.Failed(errs)

	r.logger.WithFields(map[string]interface{}{
		"sent":    len(recipients) - failed,
		"skipped": skipped,
		"failed":  failed,
		"from":    filter.StartDate,
		"to":      filter.EndDate,
	}).Info("digest run finished")

	if failed > 0 {
		return fmt.Errorf("%d of %d digests failed", failed, len(recipients))
	}
	return ctx.Err()
}

func (r *Runner) sendOne(ctx context.Context, m *storage.Merchant, window analytics.DateRange, filter analytics.GraphFilter) error {
	graph, err := r.graphs.MerchantEarningsGraph(ctx, m.ID, filter)
	if err != nil {
		return fmt.Errorf("failed to build earnings graph: %w", err)
	}

	digest := notify.Digest{
		MerchantName: m.Name,
		From:         window.Start,
		To:           window.End,
		Currency:     "USD",
		Total:        graph.Total,
	}
	for _, p := range graph.Data {
		digest.Days = append(digest.Days, notify.DigestLine{Label: p.Date, Amount: p.Earnings})
	}
	for _, tp := range graph.TopPerformers {
		label := tp.Name
		if label == "" {
			label = tp.ID
		}
		digest.TopPerformers = append(digest.TopPerformers, notify.DigestLine{Label: label, Amount: tp.Earnings})
	}

	if err := r.mailer.SendEarningsDigest(ctx, m.Email, digest); err != nil {
		if errors.Is(err, notify.ErrDisabled) {
			return nil
		}
		return fmt.Errorf("failed to send digest: %w", err)
	}
	return nil
}
