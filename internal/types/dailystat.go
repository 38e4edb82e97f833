package types

import "time"

// DailyStat is the mutable per-target, per-day rollup derived from
// probe results. One row exists per (TargetID, Date); it is created on
// the first result of a day and merged on every later one. Daily stats
// survive raw-row pruning and are never downsampled or deleted here.
type DailyStat struct {
	TargetID string

	// Date is truncated to UTC midnight.
	Date time.Time

	TotalPings      int64
	SuccessfulPings int64
	FailedPings     int64

	// UptimePct is SuccessfulPings/TotalPings*100, 0 when TotalPings is 0.
	UptimePct float64

	// LastResponseTimeMs is the response time of the most recently
	// merged result, 0 when that result carried no timing.
	LastResponseTimeMs int64

	// AvgResponseTimeMs averages successful probes only; failed probes
	// do not contribute to the denominator.
	AvgResponseTimeMs float64

	MinResponseTimeMs *int64
	MaxResponseTimeMs *int64
}

// IsEmpty returns true if no results have been merged.
func (s *DailyStat) IsEmpty() bool {
	return s.TotalPings == 0
}

// TruncateToDay truncates a timestamp to UTC midnight, the key
// resolution of daily stats.
func TruncateToDay(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}
