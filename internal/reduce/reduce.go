// Package reduce implements representative-point selection for a time
// bucket of raw probe results. Given a bucket that has outgrown its
// tier's density target, it picks the subset worth keeping: boundary
// points, response-time extremes, both sides of every up/down
// transition, and an evenly spaced sample of the rest. Everything else
// becomes a deletion candidate. The package is pure; it deletes
// nothing itself.
package reduce

import (
	"sort"

	"github.com/pulsewatch/pulsewatch/internal/types"
)

// KeepSet is the set of probe result ids selected to survive reduction.
type KeepSet map[string]struct{}

// Contains reports whether the id was selected.
func (k KeepSet) Contains(id string) bool {
	_, ok := k[id]
	return ok
}

// Reduce selects the representative subset of a bucket of probe
// results. Points must be sorted by timestamp ascending.
//
// Buckets of threshold size or smaller are kept whole. Larger buckets
// keep the first and last point, the min and max response time among
// points that carry one, both sides of every success transition, and a
// stride sample of max(1, len/keepTarget).
func Reduce(points []types.ProbeResult, threshold, keepTarget int) KeepSet {
	keep := make(KeepSet)

	if len(points) == 0 {
		return keep
	}

	if len(points) <= threshold {
		for i := range points {
			keep[points[i].ID] = struct{}{}
		}
		return keep
	}

	// Bucket boundaries.
	keep[points[0].ID] = struct{}{}
	keep[points[len(points)-1].ID] = struct{}{}

	// Response-time extremes. Skipped when no point carries a timing.
	minIdx, maxIdx := -1, -1
	for i := range points {
		rt := points[i].ResponseTimeMs
		if rt == nil {
			continue
		}
		if minIdx < 0 || *rt < *points[minIdx].ResponseTimeMs {
			minIdx = i
		}
		if maxIdx < 0 || *rt > *points[maxIdx].ResponseTimeMs {
			maxIdx = i
		}
	}
	if minIdx >= 0 {
		keep[points[minIdx].ID] = struct{}{}
		keep[points[maxIdx].ID] = struct{}{}
	}

	// Both sides of every up/down transition, so incident timelines
	// stay accurate after reduction.
	for i := 1; i < len(points); i++ {
		if points[i].Success != points[i-1].Success {
			keep[points[i-1].ID] = struct{}{}
			keep[points[i].ID] = struct{}{}
		}
	}

	// Evenly spaced sample for coarse chart shape.
	stride := len(points) / keepTarget
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(points); i += stride {
		keep[points[i].ID] = struct{}{}
	}

	return keep
}

// Complement returns the ids of points not in the keep set, in input
// order. These are the deletion candidates.
func Complement(points []types.ProbeResult, keep KeepSet) []string {
	var drop []string
	for i := range points {
		if !keep.Contains(points[i].ID) {
			drop = append(drop, points[i].ID)
		}
	}
	return drop
}

// Partition groups probe results into tier-sized buckets keyed by
// bucket start time, each bucket sorted by timestamp ascending.
func Partition(results []types.ProbeResult, tier types.Tier) map[int64][]types.ProbeResult {
	buckets := make(map[int64][]types.ProbeResult)
	for i := range results {
		start := tier.TruncateToBucket(results[i].Timestamp).UnixMilli()
		buckets[start] = append(buckets[start], results[i])
	}
	for _, bucket := range buckets {
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].Timestamp.Before(bucket[j].Timestamp)
		})
	}
	return buckets
}
