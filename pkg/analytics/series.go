package analytics

import "time"

// Sums maps bucket keys to accumulated totals.
type Sums map[string]float64

// SumByBucket accumulates every event value into its bucket. Events are not
// filtered against any range; keys that fall outside the generated series are
// simply never read.
func SumByBucket(events []TimedEvent, g Granularity, anchor time.Time) Sums {
	sums := make(Sums)
	for _, e := range events {
		key, _ := KeyFor(e.OccurredAt, g, anchor)
		sums[key] += e.Value
	}
	return sums
}

// Merge returns the additive union of s and others. Neither input is modified.
func (s Sums) Merge(others ...Sums) Sums {
	out := make(Sums, len(s))
	for k, v := range s {
		out[k] += v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] += v
		}
	}
	return out
}

// BuildSeries generates the full, zero-filled bucket sequence for r and
// copies totals out of sums.
//
// Monthly series always cover January to December of r.Start's year, so
// ranges that cross into the next year lose their trailing months.
func BuildSeries(sums Sums, r DateRange, g Granularity) Series {
	var series Series
	switch g {
	case Monthly:
		year := r.Start.UTC().Year()
		series = make(Series, 0, 12)
		for m := time.January; m <= time.December; m++ {
			key := monthKey(year, m)
			series = append(series, Bucket{Key: key, Label: monthLabel(year, m), Total: sums[key]})
		}
	case Weekly:
		for cur := StartOfDay(r.Start); !cur.After(r.End); cur = cur.AddDate(0, 0, 7) {
			key := cur.Format(dateLayout)
			series = append(series, Bucket{Key: key, Label: weekLabel(cur), Total: sums[key]})
		}
	default:
		for cur := StartOfDay(r.Start); !cur.After(r.End); cur = cur.AddDate(0, 0, 1) {
			key := cur.Format(dateLayout)
			series = append(series, Bucket{Key: key, Label: key, Total: sums[key]})
		}
	}
	return series
}
