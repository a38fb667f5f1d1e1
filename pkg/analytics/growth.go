package analytics

import "fmt"

// Growth returns the percentage change from previous to current.
// A zero previous period reports 100 when anything happened since, 0 otherwise.
func Growth(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// FormatGrowth renders a growth value with two decimals and a percent sign.
func FormatGrowth(g float64) string {
	return fmt.Sprintf("%.2f%%", g)
}
