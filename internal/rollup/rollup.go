// Package rollup implements the pure merge arithmetic for folding
// newly ingested probe results into per-day statistics. It performs no
// I/O; persistence is the caller's concern.
package rollup

import (
	"time"

	"github.com/pulsewatch/pulsewatch/internal/types"
)

// Delta summarizes one or more newly ingested probe results for a
// single (target, day) pair.
//
// AvgResponseMs is the average over the delta's successful probes;
// failed probes never contribute to the average, so merged averages are
// weighted by SuccessfulPings. This keeps the merge order-independent:
// folding N single-result deltas in any order yields the same stat as
// one pre-summed delta over the same N results.
type Delta struct {
	TotalPings      int64
	SuccessfulPings int64
	FailedPings     int64

	LastResponseMs int64
	AvgResponseMs  float64

	MinResponseMs *int64
	MaxResponseMs *int64
}

// DeltaFromResult builds the delta representing a single probe result.
func DeltaFromResult(r *types.ProbeResult) Delta {
	d := Delta{TotalPings: 1}

	if r.Success {
		d.SuccessfulPings = 1
	} else {
		d.FailedPings = 1
	}

	if r.ResponseTimeMs != nil {
		ms := *r.ResponseTimeMs
		d.LastResponseMs = ms
		d.MinResponseMs = &ms
		d.MaxResponseMs = &ms
		if r.Success {
			d.AvgResponseMs = float64(ms)
		}
	}

	return d
}

// Merge combines a delta into an existing daily stat and returns the
// result. A nil existing stat means this is the first result of the
// day; the result then equals the delta with UptimePct derived.
//
// Counts are added, the most recent response time wins, min/max merge
// null-safely, and the average is re-weighted by successful ping
// counts. Merge never mutates its inputs.
func Merge(existing *types.DailyStat, targetID string, day time.Time, d Delta) types.DailyStat {
	day = types.TruncateToDay(day)

	if existing == nil {
		return types.DailyStat{
			TargetID:           targetID,
			Date:               day,
			TotalPings:         d.TotalPings,
			SuccessfulPings:    d.SuccessfulPings,
			FailedPings:        d.FailedPings,
			UptimePct:          uptimePct(d.SuccessfulPings, d.TotalPings),
			LastResponseTimeMs: d.LastResponseMs,
			AvgResponseTimeMs:  d.AvgResponseMs,
			MinResponseTimeMs:  copyInt64(d.MinResponseMs),
			MaxResponseTimeMs:  copyInt64(d.MaxResponseMs),
		}
	}

	merged := types.DailyStat{
		TargetID:           existing.TargetID,
		Date:               existing.Date,
		TotalPings:         existing.TotalPings + d.TotalPings,
		SuccessfulPings:    existing.SuccessfulPings + d.SuccessfulPings,
		FailedPings:        existing.FailedPings + d.FailedPings,
		LastResponseTimeMs: d.LastResponseMs,
	}

	merged.UptimePct = uptimePct(merged.SuccessfulPings, merged.TotalPings)
	merged.AvgResponseTimeMs = mergeAvg(
		existing.AvgResponseTimeMs, existing.SuccessfulPings,
		d.AvgResponseMs, d.SuccessfulPings,
	)
	merged.MinResponseTimeMs = mergeMin(existing.MinResponseTimeMs, d.MinResponseMs)
	merged.MaxResponseTimeMs = mergeMax(existing.MaxResponseTimeMs, d.MaxResponseMs)

	return merged
}

func uptimePct(successful, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}

// mergeAvg computes the weighted average of two averages. Weights are
// successful ping counts; a zero combined weight returns the delta's
// average unchanged.
func mergeAvg(existingAvg float64, existingWeight int64, deltaAvg float64, deltaWeight int64) float64 {
	combined := existingWeight + deltaWeight
	if combined == 0 {
		return deltaAvg
	}
	return (existingAvg*float64(existingWeight) + deltaAvg*float64(deltaWeight)) / float64(combined)
}

// mergeMin returns the null-safe minimum: a present value beats an
// absent one.
func mergeMin(a, b *int64) *int64 {
	switch {
	case a == nil:
		return copyInt64(b)
	case b == nil:
		return copyInt64(a)
	case *a <= *b:
		return copyInt64(a)
	default:
		return copyInt64(b)
	}
}

// mergeMax returns the null-safe maximum.
func mergeMax(a, b *int64) *int64 {
	switch {
	case a == nil:
		return copyInt64(b)
	case b == nil:
		return copyInt64(a)
	case *a >= *b:
		return copyInt64(a)
	default:
		return copyInt64(b)
	}
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
