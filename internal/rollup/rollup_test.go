package rollup

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/types"
)

const tolerance = 1e-9

var day = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func result(success bool, responseMs int64) *types.ProbeResult {
	r := &types.ProbeResult{
		TargetID:  "t1",
		Timestamp: day.Add(6 * time.Hour),
		Success:   success,
		Protocol:  types.ProtocolICMP,
	}
	if responseMs >= 0 {
		r.ResponseTimeMs = &responseMs
	}
	return r
}

func fold(results ...*types.ProbeResult) types.DailyStat {
	var stat *types.DailyStat
	for _, r := range results {
		merged := Merge(stat, r.TargetID, day, DeltaFromResult(r))
		stat = &merged
	}
	return *stat
}

func TestMerge_AllSuccessful(t *testing.T) {
	stat := fold(result(true, 100), result(true, 200), result(true, 300))

	if stat.TotalPings != 3 || stat.SuccessfulPings != 3 || stat.FailedPings != 0 {
		t.Errorf("counts wrong: total=%d succ=%d fail=%d",
			stat.TotalPings, stat.SuccessfulPings, stat.FailedPings)
	}
	if math.Abs(stat.UptimePct-100) > tolerance {
		t.Errorf("uptime: %v", stat.UptimePct)
	}
	if math.Abs(stat.AvgResponseTimeMs-200) > tolerance {
		t.Errorf("avg: %v", stat.AvgResponseTimeMs)
	}
	if stat.MinResponseTimeMs == nil || *stat.MinResponseTimeMs != 100 {
		t.Errorf("min: %v", stat.MinResponseTimeMs)
	}
	if stat.MaxResponseTimeMs == nil || *stat.MaxResponseTimeMs != 300 {
		t.Errorf("max: %v", stat.MaxResponseTimeMs)
	}
	if stat.LastResponseTimeMs != 300 {
		t.Errorf("last: %v", stat.LastResponseTimeMs)
	}
}

// Failed probes are excluded from the average: success(100), fail,
// success(300) averages to 200, not 133.33.
func TestMerge_FailedProbeExcludedFromAverage(t *testing.T) {
	stat := fold(result(true, 100), result(false, -1), result(true, 300))

	if stat.TotalPings != 3 || stat.SuccessfulPings != 2 || stat.FailedPings != 1 {
		t.Errorf("counts wrong: total=%d succ=%d fail=%d",
			stat.TotalPings, stat.SuccessfulPings, stat.FailedPings)
	}
	if math.Abs(stat.UptimePct-200.0/3.0) > tolerance {
		t.Errorf("uptime: %v", stat.UptimePct)
	}
	if math.Abs(stat.AvgResponseTimeMs-200) > tolerance {
		t.Errorf("avg: %v (failed probes must not dilute the average)", stat.AvgResponseTimeMs)
	}
}

func TestMerge_NilExistingEqualsDelta(t *testing.T) {
	d := DeltaFromResult(result(true, 42))
	stat := Merge(nil, "t1", day.Add(13*time.Hour), d)

	if !stat.Date.Equal(day) {
		t.Errorf("date not truncated: %v", stat.Date)
	}
	if stat.TargetID != "t1" {
		t.Errorf("target id: %s", stat.TargetID)
	}
	if stat.TotalPings != 1 || stat.SuccessfulPings != 1 {
		t.Errorf("counts: %+v", stat)
	}
	if math.Abs(stat.UptimePct-100) > tolerance {
		t.Errorf("uptime: %v", stat.UptimePct)
	}
}

func TestMerge_AllFailed(t *testing.T) {
	stat := fold(result(false, -1), result(false, -1))

	if stat.TotalPings != 2 || stat.FailedPings != 2 {
		t.Errorf("counts: %+v", stat)
	}
	if stat.UptimePct != 0 {
		t.Errorf("uptime: %v", stat.UptimePct)
	}
	if stat.AvgResponseTimeMs != 0 {
		t.Errorf("avg: %v", stat.AvgResponseTimeMs)
	}
	if stat.MinResponseTimeMs != nil || stat.MaxResponseTimeMs != nil {
		t.Errorf("min/max should be nil: %v %v", stat.MinResponseTimeMs, stat.MaxResponseTimeMs)
	}
}

func TestMerge_NullSafeMinMax(t *testing.T) {
	// A present value beats an absent one in either direction.
	stat := fold(result(false, -1), result(true, 150))
	if stat.MinResponseTimeMs == nil || *stat.MinResponseTimeMs != 150 {
		t.Errorf("min: %v", stat.MinResponseTimeMs)
	}
	if stat.MaxResponseTimeMs == nil || *stat.MaxResponseTimeMs != 150 {
		t.Errorf("max: %v", stat.MaxResponseTimeMs)
	}
	if stat.MinResponseTimeMs != nil && stat.MaxResponseTimeMs != nil &&
		*stat.MinResponseTimeMs > *stat.MaxResponseTimeMs {
		t.Error("min exceeds max")
	}
}

// Merging one-at-a-time must match merging a pre-summed bulk delta in
// the counts dimension, and the weighted average must be
// order-independent.
func TestMerge_BatchingInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	var results []*types.ProbeResult
	for i := 0; i < 200; i++ {
		if rng.Intn(4) == 0 {
			results = append(results, result(false, -1))
		} else {
			results = append(results, result(true, int64(50+rng.Intn(500))))
		}
	}

	oneAtATime := fold(results...)

	// Pre-sum all results into a single bulk delta.
	var bulk Delta
	var sum float64
	for _, r := range results {
		d := DeltaFromResult(r)
		bulk.TotalPings += d.TotalPings
		bulk.SuccessfulPings += d.SuccessfulPings
		bulk.FailedPings += d.FailedPings
		bulk.LastResponseMs = d.LastResponseMs
		bulk.MinResponseMs = mergeMin(bulk.MinResponseMs, d.MinResponseMs)
		bulk.MaxResponseMs = mergeMax(bulk.MaxResponseMs, d.MaxResponseMs)
		sum += d.AvgResponseMs * float64(d.SuccessfulPings)
	}
	if bulk.SuccessfulPings > 0 {
		bulk.AvgResponseMs = sum / float64(bulk.SuccessfulPings)
	}

	bulked := Merge(nil, "t1", day, bulk)

	if oneAtATime.TotalPings != bulked.TotalPings ||
		oneAtATime.SuccessfulPings != bulked.SuccessfulPings ||
		oneAtATime.FailedPings != bulked.FailedPings {
		t.Errorf("counts differ: %+v vs %+v", oneAtATime, bulked)
	}
	if oneAtATime.TotalPings != oneAtATime.SuccessfulPings+oneAtATime.FailedPings {
		t.Error("total != successful + failed")
	}
	if math.Abs(oneAtATime.UptimePct-bulked.UptimePct) > tolerance {
		t.Errorf("uptime differs: %v vs %v", oneAtATime.UptimePct, bulked.UptimePct)
	}
	if math.Abs(oneAtATime.AvgResponseTimeMs-bulked.AvgResponseTimeMs) > 1e-6 {
		t.Errorf("avg differs: %v vs %v", oneAtATime.AvgResponseTimeMs, bulked.AvgResponseTimeMs)
	}

	// Shuffled order yields identical counts and average.
	shuffled := make([]*types.ProbeResult, len(results))
	copy(shuffled, results)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	reordered := fold(shuffled...)
	if reordered.TotalPings != oneAtATime.TotalPings ||
		math.Abs(reordered.UptimePct-oneAtATime.UptimePct) > tolerance {
		t.Error("counts not order-independent")
	}
	if math.Abs(reordered.AvgResponseTimeMs-oneAtATime.AvgResponseTimeMs) > 1e-6 {
		t.Errorf("avg not order-independent: %v vs %v",
			reordered.AvgResponseTimeMs, oneAtATime.AvgResponseTimeMs)
	}
}

func TestMerge_DoesNotMutateExisting(t *testing.T) {
	min := int64(100)
	existing := types.DailyStat{
		TargetID:          "t1",
		Date:              day,
		TotalPings:        1,
		SuccessfulPings:   1,
		UptimePct:         100,
		AvgResponseTimeMs: 100,
		MinResponseTimeMs: &min,
		MaxResponseTimeMs: &min,
	}

	Merge(&existing, "t1", day, DeltaFromResult(result(true, 50)))

	if existing.TotalPings != 1 || *existing.MinResponseTimeMs != 100 {
		t.Error("existing stat was mutated")
	}
}
