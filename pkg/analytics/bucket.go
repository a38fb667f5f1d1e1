package analytics

import (
	"fmt"
	"time"
)

// Bucket is one point of a graph series.
type Bucket struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// Series is an ordered, gap-free list of buckets.
type Series []Bucket

// Keys returns the bucket keys in series order.
func (s Series) Keys() []string {
	keys := make([]string, len(s))
	for i, b := range s {
		keys[i] = b.Key
	}
	return keys
}

// Total sums every bucket of the series.
func (s Series) Total() float64 {
	var total float64
	for _, b := range s {
		total += b.Total
	}
	return total
}

// KeyFor returns the bucket key and display label that t falls into.
// anchor is the range start and only matters for Weekly buckets.
func KeyFor(t time.Time, g Granularity, anchor time.Time) (key, label string) {
	t = t.UTC()
	switch g {
	case Monthly:
		return monthKey(t.Year(), t.Month()), monthLabel(t.Year(), t.Month())
	case Weekly:
		ws := weekStart(t, anchor)
		return ws.Format(dateLayout), weekLabel(ws)
	default:
		key = t.Format(dateLayout)
		return key, key
	}
}

// weekStart floors t to the start of its 7-day window counted from anchor.
func weekStart(t, anchor time.Time) time.Time {
	a := StartOfDay(anchor)
	days := int(StartOfDay(t).Sub(a) / (24 * time.Hour))
	weeks := days / 7
	if days < 0 && days%7 != 0 {
		weeks--
	}
	return a.AddDate(0, 0, weeks*7)
}

func weekLabel(start time.Time) string {
	end := start.AddDate(0, 0, 6)
	return fmt.Sprintf("Week of %s - %s", usDate(start), usDate(end))
}

// usDate renders M/D/YYYY without zero padding.
func usDate(t time.Time) string {
	return t.Format("1/2/2006")
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

func monthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month.String(), year)
}
