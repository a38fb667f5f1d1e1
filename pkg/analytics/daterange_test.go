package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2025-01-01", "2025-01-10")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2025, 1, 10, 23, 59, 59, 999000000, time.UTC), r.End)
}

func TestParseDateRangeRFC3339(t *testing.T) {
	r, err := ParseDateRange("2025-01-01T00:00:00Z", "2025-01-10T08:30:00+02:00")
	require.NoError(t, err)

	// The end is normalized in UTC: 08:30+02:00 is 06:30Z on the same day.
	assert.Equal(t, time.Date(2025, 1, 10, 23, 59, 59, 999000000, time.UTC), r.End)
}

func TestParseDateRangeErrors(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		field string
	}{
		{"missing start", "", "2025-01-10", FieldStartDate},
		{"missing end", "2025-01-01", " ", FieldEndDate},
		{"garbage start", "yesterday", "2025-01-10", FieldStartDate},
		{"garbage end", "2025-01-01", "2025-13-45", FieldEndDate},
		{"start after end", "2025-02-01", "2025-01-10", FieldStartDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDateRange(tt.start, tt.end)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFilter)

			var fe *FilterError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
			assert.Contains(t, err.Error(), "invalid date filter: "+tt.field+": ")
		})
	}
}

func TestParseDateRangeSameDay(t *testing.T) {
	r, err := ParseDateRange("2025-03-03", "2025-03-03")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.SpanDays(), 0.0001)
}

func TestDateRangeContains(t *testing.T) {
	r, err := ParseDateRange("2025-01-01", "2025-01-02")
	require.NoError(t, err)

	assert.True(t, r.Contains(r.Start))
	assert.True(t, r.Contains(r.End))
	assert.True(t, r.Contains(time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)))
}

func TestLastDays(t *testing.T) {
	now := time.Date(2025, 1, 14, 15, 4, 5, 0, time.UTC)
	r := LastDays(now, 7)

	assert.Equal(t, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, EndOfDay(now), r.End)
	assert.Len(t, BuildSeries(nil, r, Daily), 7)
}
