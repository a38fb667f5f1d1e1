package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTopPerformers is the leaderboard length returned with earnings graphs.
	DefaultTopPerformers = 5
	// summaryWindow is the comparison window used by the dashboard summaries.
	summaryWindow = 30 * 24 * time.Hour
)

// Service builds dashboard graphs and summaries on top of an EventSource.
type Service struct {
	source           EventSource
	signups          *Aggregator
	earnings         *Aggregator
	merchantEarnings *Aggregator
	topN             int
}

// NewService creates a new analytics service
func NewService(source EventSource) *Service {
	return &Service{
		source:           source,
		signups:          NewAggregator(SignupGranularityPolicy),
		earnings:         NewAggregator(SignupGranularityPolicy),
		merchantEarnings: NewAggregator(EarningsGranularityPolicy),
		topN:             DefaultTopPerformers,
	}
}

// GraphFilter is the startDate/endDate pair accepted by every graph endpoint.
type GraphFilter struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

// Range parses the filter into a normalized DateRange.
func (f GraphFilter) Range() (DateRange, error) {
	return ParseDateRange(f.StartDate, f.EndDate)
}

// CountPoint is one bucket of a signup graph.
type CountPoint struct {
	Date  string  `json:"date"`
	Key   string  `json:"key"`
	Count float64 `json:"count"`
}

// EarningsPoint is one bucket of an earnings graph.
type EarningsPoint struct {
	Date     string  `json:"date"`
	Key      string  `json:"key"`
	Earnings float64 `json:"earnings"`
}

// SignupGraph is the response envelope for signup graphs.
type SignupGraph struct {
	FilterType Granularity  `json:"filterType"`
	Data       []CountPoint `json:"data"`
}

// EarningsGraph is the response envelope for earnings graphs.
type EarningsGraph struct {
	FilterType    Granularity     `json:"filterType"`
	Data          []EarningsPoint `json:"data"`
	Total         float64         `json:"total"`
	TopPerformers []TopPerformer  `json:"topPerformers"`
}

// AdminSummary holds the platform-wide dashboard KPIs.
type AdminSummary struct {
	TotalUsers      int64  `json:"totalUsers"`
	UsersGrowth     string `json:"usersGrowth"`
	TotalMerchants  int64  `json:"totalMerchants"`
	MerchantsGrowth string `json:"merchantsGrowth"`
	TotalOffers     int64  `json:"totalOffers"`
	OffersGrowth    string `json:"offersGrowth"`
}

// MerchantSummary holds the dashboard KPIs of one merchant.
type MerchantSummary struct {
	TotalClicks    int64   `json:"totalClicks"`
	ClicksGrowth   string  `json:"clicksGrowth"`
	TotalEarnings  float64 `json:"totalEarnings"`
	EarningsGrowth string  `json:"earningsGrowth"`
	TotalOffers    int64   `json:"totalOffers"`
	OffersGrowth   string  `json:"offersGrowth"`
}

// AdminSignupGraph merges user and merchant signups into one count series.
func (s *Service) AdminSignupGraph(ctx context.Context, filter GraphFilter) (*SignupGraph, error) {
	r, err := filter.Range()
	if err != nil {
		return nil, err
	}

	users, err := s.source.Events(ctx, EventQuery{Kind: KindUserSignup, From: r.Start, To: r.End})
	if err != nil {
		return nil, fmt.Errorf("failed to load user signups: %w", err)
	}
	merchants, err := s.source.Events(ctx, EventQuery{Kind: KindMerchantSignup, From: r.Start, To: r.End})
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant signups: %w", err)
	}

	g, series := s.signups.Aggregate(r, users, merchants)
	return &SignupGraph{FilterType: g, Data: countPoints(series)}, nil
}

// MerchantSignupGraph counts the users referred by one merchant.
func (s *Service) MerchantSignupGraph(ctx context.Context, merchantID string, filter GraphFilter) (*SignupGraph, error) {
	r, err := filter.Range()
	if err != nil {
		return nil, err
	}

	users, err := s.source.Events(ctx, EventQuery{Kind: KindUserSignup, MerchantID: merchantID, From: r.Start, To: r.End})
	if err != nil {
		return nil, fmt.Errorf("failed to load signups for merchant %s: %w", merchantID, err)
	}

	g, series := s.signups.Aggregate(r, users)
	return &SignupGraph{FilterType: g, Data: countPoints(series)}, nil
}

// AdminEarningsGraph sums platform earnings and ranks merchants by earnings.
func (s *Service) AdminEarningsGraph(ctx context.Context, filter GraphFilter) (*EarningsGraph, error) {
	r, err := filter.Range()
	if err != nil {
		return nil, err
	}

	events, err := s.source.Events(ctx, EventQuery{Kind: KindEarning, From: r.Start, To: r.End})
	if err != nil {
		return nil, fmt.Errorf("failed to load earnings: %w", err)
	}

	g, series := s.earnings.Aggregate(r, events)
	top, err := s.topPerformers(ctx, OwnerMerchant, events)
	if err != nil {
		return nil, err
	}
	return &EarningsGraph{FilterType: g, Data: earningsPoints(series), Total: series.Total(), TopPerformers: top}, nil
}

// MerchantEarningsGraph sums one merchant's earnings and ranks its affiliates.
func (s *Service) MerchantEarningsGraph(ctx context.Context, merchantID string, filter GraphFilter) (*EarningsGraph, error) {
	r, err := filter.Range()
	if err != nil {
		return nil, err
	}

	events, err := s.source.Events(ctx, EventQuery{Kind: KindEarning, MerchantID: merchantID, From: r.Start, To: r.End})
	if err != nil {
		return nil, fmt.Errorf("failed to load earnings for merchant %s: %w", merchantID, err)
	}

	g, series := s.merchantEarnings.Aggregate(r, events)
	top, err := s.topPerformers(ctx, OwnerUser, events)
	if err != nil {
		return nil, err
	}
	return &EarningsGraph{FilterType: g, Data: earningsPoints(series), Total: series.Total(), TopPerformers: top}, nil
}

// AdminDashboardSummary reports platform totals and 30-day growth.
func (s *Service) AdminDashboardSummary(ctx context.Context, now time.Time) (*AdminSummary, error) {
	stats, err := s.kindStats(ctx, "", now, KindUserSignup, KindMerchantSignup, KindOfferCreated)
	if err != nil {
		return nil, err
	}

	users, merchants, offers := stats[0], stats[1], stats[2]
	return &AdminSummary{
		TotalUsers:      int64(users.total),
		UsersGrowth:     FormatGrowth(users.growth()),
		TotalMerchants:  int64(merchants.total),
		MerchantsGrowth: FormatGrowth(merchants.growth()),
		TotalOffers:     int64(offers.total),
		OffersGrowth:    FormatGrowth(offers.growth()),
	}, nil
}

// MerchantDashboardSummary reports one merchant's totals and 30-day growth.
func (s *Service) MerchantDashboardSummary(ctx context.Context, merchantID string, now time.Time) (*MerchantSummary, error) {
	stats, err := s.kindStats(ctx, merchantID, now, KindClick, KindEarning, KindOfferCreated)
	if err != nil {
		return nil, err
	}

	clicks, earnings, offers := stats[0], stats[1], stats[2]
	return &MerchantSummary{
		TotalClicks:    int64(clicks.total),
		ClicksGrowth:   FormatGrowth(clicks.growth()),
		TotalEarnings:  earnings.total,
		EarningsGrowth: FormatGrowth(earnings.growth()),
		TotalOffers:    int64(offers.total),
		OffersGrowth:   FormatGrowth(offers.growth()),
	}, nil
}

type kindStat struct {
	total    float64
	current  float64
	previous float64
}

func (k kindStat) growth() float64 {
	return Growth(k.current, k.previous)
}

// kindStats fetches all-time, current-window and previous-window totals for
// each kind concurrently. Results are returned in kinds order.
func (s *Service) kindStats(ctx context.Context, merchantID string, now time.Time, kinds ...EventKind) ([]kindStat, error) {
	now = now.UTC()
	currentFrom := now.Add(-summaryWindow)
	previousFrom := currentFrom.Add(-summaryWindow)

	stats := make([]kindStat, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		queries := []struct {
			dst *float64
			q   EventQuery
		}{
			{&stats[i].total, EventQuery{Kind: kind, MerchantID: merchantID}},
			{&stats[i].current, EventQuery{Kind: kind, MerchantID: merchantID, From: currentFrom, To: now}},
			{&stats[i].previous, EventQuery{Kind: kind, MerchantID: merchantID, From: previousFrom, To: currentFrom.Add(-time.Nanosecond)}},
		}
		for _, query := range queries {
			g.Go(func() error {
				total, err := s.source.Total(gctx, query.q)
				if err != nil {
					return fmt.Errorf("failed to count %s: %w", query.q.Kind, err)
				}
				*query.dst = total
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) topPerformers(ctx context.Context, kind OwnerKind, events []TimedEvent) ([]TopPerformer, error) {
	ranked := RankOwners(events, s.topN)
	if len(ranked) == 0 {
		return []TopPerformer{}, nil
	}

	ids := make([]string, len(ranked))
	for i, p := range ranked {
		ids[i] = p.ID
	}
	names, err := s.source.OwnerNames(ctx, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s names: %w", kind, err)
	}
	return applyNames(ranked, names), nil
}

func countPoints(series Series) []CountPoint {
	points := make([]CountPoint, len(series))
	for i, b := range series {
		points[i] = CountPoint{Date: b.Label, Key: b.Key, Count: b.Total}
	}
	return points
}

func earningsPoints(series Series) []EarningsPoint {
	points := make([]EarningsPoint, len(series))
	for i, b := range series {
		points[i] = EarningsPoint{Date: b.Label, Key: b.Key, Earnings: b.Total}
	}
	return points
}
