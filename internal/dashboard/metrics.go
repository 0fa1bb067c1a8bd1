package dashboard

// MetricSnapshot is one summary card: a value for the current window and its
// change against the previous window.
type MetricSnapshot struct {
	Title  string  `json:"title"`
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

// PercentageChange compares a current value against a previous-period base.
// Both zero reads as no movement; growth from a zero base is pinned at 100
// rather than dividing by zero.
func PercentageChange(current, previous float64) float64 {
	if almostZero(previous) {
		if almostZero(current) {
			return 0
		}
		return 100
	}
	return (current - previous) / previous * 100
}

func almostZero(v float64) bool {
	return v > -0.0001 && v < 0.0001
}
