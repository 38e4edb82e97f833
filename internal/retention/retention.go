// Package retention implements the tiered downsampling and hard-cutoff
// deletion of raw probe results. Aged rows are reduced to hourly and
// daily representative subsets, rows past the admin-set horizon are
// deleted outright, and a per-target row cap backstops pathological
// write volume. Daily stat rollups are never touched here.
package retention

import (
	"context"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/types"
)

// ResultRepository is the raw-row surface retention operates on. Both
// store.Store and store.MemStore satisfy it.
type ResultRepository interface {
	FindResultsInRange(ctx context.Context, targetID string, from, to time.Time) ([]types.ProbeResult, error)
	FetchResultsOlderThan(ctx context.Context, cutoff time.Time) ([]types.ProbeResult, error)
	DeleteResultsByID(ctx context.Context, ids []string) (int64, error)
	DeleteResultsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CountResults(ctx context.Context, targetID string) (int64, error)
	TrimResultsToNewest(ctx context.Context, targetID string, maxRows int) (int64, error)
	ListResultTargets(ctx context.Context) ([]string, error)
}

// TargetRepository lists the targets a sweep covers.
type TargetRepository interface {
	ListEnabledTargets(ctx context.Context) ([]types.Target, error)
}

// SettingsRepository reads the admin-settable retention horizon.
type SettingsRepository interface {
	RetentionDays(ctx context.Context) (int, error)
}

// Archiver receives rows about to be hard-deleted. Optional.
type Archiver interface {
	Archive(ctx context.Context, results []types.ProbeResult) error
}
