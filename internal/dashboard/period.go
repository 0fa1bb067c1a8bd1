package dashboard

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// PeriodWindows splits the rolling period ending today into two contiguous
// windows of equal length: previous ends exactly where current starts, so no
// order is counted twice or missed. Windows are aligned to UTC day
// boundaries; current always covers today as a full bucket.
func PeriodWindows(now time.Time, days int) (previous, current Window) {
	end := dayOf(now).AddDate(0, 0, 1)
	mid := end.AddDate(0, 0, -days)
	start := mid.AddDate(0, 0, -days)
	return Window{Start: start, End: mid}, Window{Start: mid, End: end}
}

// enumerateDays lists every calendar day covered by the window, truncated to
// midnight UTC. Used to zero-fill daily series.
func enumerateDays(w Window) []time.Time {
	var days []time.Time
	current := dayOf(w.Start)
	end := dayOf(w.End.Add(-time.Nanosecond))
	for !current.After(end) {
		days = append(days, current)
		current = current.AddDate(0, 0, 1)
	}
	return days
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}
