package analytics

// Granularity is the bucket width chosen for a graph. It is derived per request and never stored.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// monthlyThresholdDays is the span at which graphs switch to monthly buckets.
const monthlyThresholdDays = 30

// dailyThresholdDays is the widest span still drawn with daily buckets.
const dailyThresholdDays = 7

// GranularityPolicy maps a fractional span in days to a bucket width.
type GranularityPolicy func(spanDays float64) Granularity

// SignupGranularityPolicy is the two-way policy used by the signup graphs and the
// platform-wide earnings graph: a month or more is Monthly, anything shorter Weekly.
func SignupGranularityPolicy(spanDays float64) Granularity {
	if spanDays >= monthlyThresholdDays {
		return Monthly
	}
	return Weekly
}

// EarningsGranularityPolicy is the three-way policy used by the per-merchant earnings graph.
func EarningsGranularityPolicy(spanDays float64) Granularity {
	switch {
	case spanDays <= dailyThresholdDays:
		return Daily
	case spanDays < monthlyThresholdDays:
		return Weekly
	default:
		return Monthly
	}
}

// Classify picks the granularity for r under policy. It never fails.
func Classify(policy GranularityPolicy, r DateRange) Granularity {
	return policy(r.SpanDays())
}
