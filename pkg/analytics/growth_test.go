package analytics

import (
	"math"
	"testing"
)

func TestGrowth(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		want     float64
	}{
		{"no history with activity", 5, 0, 100},
		{"no history no activity", 0, 0, 0},
		{"doubled", 10, 5, 100},
		{"halved", 5, 10, -50},
		{"flat", 7, 7, 0},
		{"fractional", 1, 3, -66.66666666666667},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Growth(tt.current, tt.previous)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Growth(%v, %v) = %v, want %v", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func TestFormatGrowth(t *testing.T) {
	tests := map[float64]string{
		100:                "100.00%",
		0:                  "0.00%",
		-66.66666666666667: "-66.67%",
		12.346:             "12.35%",
	}
	for in, want := range tests {
		if got := FormatGrowth(in); got != want {
			t.Errorf("FormatGrowth(%v) = %q, want %q", in, got, want)
		}
	}
}
