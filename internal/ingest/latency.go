package ingest

import (
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/pulsewatch/pulsewatch/internal/types"
)

// LatencyTracker maintains per-(target, day) DDSketch summaries of
// successful response times, for percentile queries the fixed
// daily-stat columns cannot answer.
//
// Sketches are process-local and approximate within the configured
// relative accuracy. They are not persisted; a restart loses them,
// which is acceptable for a dashboard overlay.
type LatencyTracker struct {
	mu       sync.Mutex
	accuracy float64
	sketches map[string]*ddsketch.DDSketch
}

// Percentiles holds the latency quantiles of one (target, day) pair.
type Percentiles struct {
	P50 float64
	P90 float64
	P95 float64
	P99 float64
}

// NewLatencyTracker creates a tracker with the given DDSketch relative
// accuracy (0.01 = 1% error).
func NewLatencyTracker(accuracy float64) *LatencyTracker {
	return &LatencyTracker{
		accuracy: accuracy,
		sketches: make(map[string]*ddsketch.DDSketch),
	}
}

func latencyKey(targetID string, day time.Time) string {
	return targetID + "|" + types.TruncateToDay(day).Format("2006-01-02")
}

// Observe adds a successful response time to the (target, day) sketch.
func (t *LatencyTracker) Observe(targetID string, day time.Time, responseMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := latencyKey(targetID, day)
	sketch, ok := t.sketches[key]
	if !ok {
		created, err := ddsketch.NewDefaultDDSketch(t.accuracy)
		if err != nil {
			return
		}
		sketch = created
		t.sketches[key] = sketch
	}

	sketch.Add(responseMs)
}

// Quantiles returns the latency percentiles for a (target, day) pair,
// or false if nothing has been observed for it.
func (t *LatencyTracker) Quantiles(targetID string, day time.Time) (Percentiles, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sketch, ok := t.sketches[latencyKey(targetID, day)]
	if !ok || sketch.GetCount() == 0 {
		return Percentiles{}, false
	}

	p50, err50 := sketch.GetValueAtQuantile(0.50)
	p90, err90 := sketch.GetValueAtQuantile(0.90)
	p95, err95 := sketch.GetValueAtQuantile(0.95)
	p99, err99 := sketch.GetValueAtQuantile(0.99)
	if err50 != nil || err90 != nil || err95 != nil || err99 != nil {
		return Percentiles{}, false
	}

	return Percentiles{P50: p50, P90: p90, P95: p95, P99: p99}, true
}

// EvictBefore drops sketches for days before the given day. Called on
// day rollover so memory stays bounded by active days.
func (t *LatencyTracker) EvictBefore(day time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := types.TruncateToDay(day).Format("2006-01-02")

	var evicted int
	for key := range t.sketches {
		// Key layout is targetID|YYYY-MM-DD.
		if len(key) > 10 && key[len(key)-10:] < cutoff {
			delete(t.sketches, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live sketches.
func (t *LatencyTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sketches)
}
