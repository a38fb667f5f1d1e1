package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	// ErrInvalidFilter is returned when a graph filter cannot be turned into a date range.
	ErrInvalidFilter = errors.New("invalid date filter")
)

// Graph filter query parameters
const (
	FieldStartDate = "startDate"
	FieldEndDate   = "endDate"
)

// FilterError names the query parameter that made a graph filter invalid.
// errors.Is(err, ErrInvalidFilter) holds for every FilterError.
type FilterError struct {
	Field string
	Err   error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrInvalidFilter, e.Field, e.Err)
}

func (e *FilterError) Unwrap() []error { return []error{ErrInvalidFilter, e.Err} }

// DateRange is an inclusive reporting window. End is normalized to the last
// millisecond of its UTC day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from two instants, normalizing End to end-of-day.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: start.UTC(), End: EndOfDay(end)}
	if r.Start.After(r.End) {
		return DateRange{}, &FilterError{Field: FieldStartDate, Err: fmt.Errorf("start %s is after end %s",
			r.Start.Format(dateLayout), r.End.Format(dateLayout))}
	}
	return r, nil
}

// ParseDateRange parses the startDate/endDate query strings used by the graph endpoints.
// Both ISO dates (2025-01-31) and RFC3339 timestamps are accepted.
func ParseDateRange(startDate, endDate string) (DateRange, error) {
	start, err := parseDate(startDate)
	if err != nil {
		return DateRange{}, &FilterError{Field: FieldStartDate, Err: err}
	}
	end, err := parseDate(endDate)
	if err != nil {
		return DateRange{}, &FilterError{Field: FieldEndDate, Err: err}
	}
	return NewDateRange(start, end)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("value is required")
	}
	for _, layout := range []string{dateLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", s)
}

// EndOfDay returns 23:59:59.999 UTC of t's UTC calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

// StartOfDay returns midnight UTC of t's UTC calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SpanDays is the fractional number of days between Start and End.
func (r DateRange) SpanDays() float64 {
	return float64(r.End.Sub(r.Start)) / float64(24*time.Hour)
}

// Contains reports whether t falls inside the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// LastDays returns the window of n whole days ending on now's day.
func LastDays(now time.Time, n int) DateRange {
	end := EndOfDay(now)
	return DateRange{Start: StartOfDay(now).AddDate(0, 0, -(n - 1)), End: end}
}
