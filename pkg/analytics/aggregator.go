package analytics

// Aggregator turns raw timed events into a graph series for one date range.
// It holds no per-request state and is safe for concurrent use.
type Aggregator struct {
	policy GranularityPolicy
}

// NewAggregator creates an aggregator that picks bucket widths with policy.
func NewAggregator(policy GranularityPolicy) *Aggregator {
	if policy == nil {
		policy = SignupGranularityPolicy
	}
	return &Aggregator{policy: policy}
}

// Aggregate classifies r, sums every source into buckets, merges the sums and
// builds the zero-filled series.
func (a *Aggregator) Aggregate(r DateRange, sources ...[]TimedEvent) (Granularity, Series) {
	g := Classify(a.policy, r)
	merged := make(Sums)
	for _, events := range sources {
		merged = merged.Merge(SumByBucket(events, g, r.Start))
	}
	return g, BuildSeries(merged, r, g)
}
