// Package analytics builds the dashboard graphs and KPI summaries for biolink.
//
// # Overview
//
// Graph endpoints receive a startDate/endDate pair. The range is normalized so
// that the end covers its whole UTC day, a bucket width is chosen from the
// span, events are summed into buckets and the result is padded into a gap-free
// series so charts never have holes.
//
// # Granularity
//
// Two policies exist and are intentionally not unified:
//
//   - SignupGranularityPolicy: span >= 30 days is monthly, anything shorter weekly.
//     Used by both signup graphs and the platform earnings graph.
//   - EarningsGranularityPolicy: span <= 7 days is daily, under 30 days weekly,
//     otherwise monthly. Used by the per-merchant earnings graph.
//
// # Buckets
//
// Daily buckets are keyed YYYY-MM-DD. Weekly buckets start on the range start
// rather than on a fixed weekday and are labelled "Week of 1/5/2025 - 1/11/2025".
// Monthly buckets cover January to December of the start year and are labelled
// "January 2025"; a range crossing into the next year drops those months.
//
// # Usage Example
//
//	svc := analytics.NewService(store)
//	graph, err := svc.MerchantEarningsGraph(ctx, merchantID, analytics.GraphFilter{
//		StartDate: "2025-01-01",
//		EndDate:   "2025-01-07",
//	})
//	// graph.FilterType == analytics.Daily, len(graph.Data) == 7
//
// # Growth
//
// Summaries compare the last 30 days with the 30 days before. A previous period
// of zero reports 100% when anything happened since and 0% otherwise.
package analytics
