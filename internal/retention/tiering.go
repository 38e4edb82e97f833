package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulsewatch/pulsewatch/internal/logging"
	"github.com/pulsewatch/pulsewatch/internal/reduce"
	"github.com/pulsewatch/pulsewatch/internal/types"
)

// TieringOptions configures the tiering engine.
type TieringOptions struct {
	// DeleteBatchSize is the number of ids per delete statement.
	DeleteBatchSize int

	// DeleteRatePerSec paces delete batches. Zero disables pacing.
	DeleteRatePerSec float64
}

// TierResult summarizes one target's tiering pass.
type TierResult struct {
	Scanned int
	Deleted int
}

// TieringEngine partitions a target's aged raw results into hour and
// day buckets and deletes everything the reducer does not keep.
type TieringEngine struct {
	results ResultRepository
	limiter *rate.Limiter
	batch   int
	log     *slog.Logger
}

// NewTieringEngine creates a tiering engine.
func NewTieringEngine(results ResultRepository, opts TieringOptions) *TieringEngine {
	batch := opts.DeleteBatchSize
	if batch <= 0 {
		batch = 500
	}

	var limiter *rate.Limiter
	if opts.DeleteRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.DeleteRatePerSec), 1)
	}

	return &TieringEngine{
		results: results,
		limiter: limiter,
		batch:   batch,
		log:     logging.Component("tiering"),
	}
}

// TierTarget reduces one target's aged rows. Results aged between the
// raw and hourly windows reduce per hour bucket; anything older
// reduces per day bucket. Re-running against unchanged rows is a
// no-op; once the window boundaries advance, a shrunken bucket may
// legitimately re-select a smaller subset.
func (e *TieringEngine) TierTarget(ctx context.Context, targetID string) (TierResult, error) {
	now := time.Now().UTC()
	rawCutoff := now.AddDate(0, 0, -types.RawWindowDays)
	hourlyCutoff := now.AddDate(0, 0, -types.HourlyWindowDays)

	var total TierResult

	// Hourly tier: hourlyCutoff <= ts < rawCutoff.
	hourly, err := e.reduceRange(ctx, targetID, types.TierHourly, hourlyCutoff, rawCutoff)
	if err != nil {
		return total, fmt.Errorf("hourly tier for %s: %w", targetID, err)
	}
	total.Scanned += hourly.Scanned
	total.Deleted += hourly.Deleted

	// Daily tier: everything older than the hourly window.
	daily, err := e.reduceRange(ctx, targetID, types.TierDaily, time.Unix(0, 0).UTC(), hourlyCutoff)
	if err != nil {
		return total, fmt.Errorf("daily tier for %s: %w", targetID, err)
	}
	total.Scanned += daily.Scanned
	total.Deleted += daily.Deleted

	if total.Deleted > 0 {
		e.log.Info("tiered target",
			"target", targetID,
			"scanned", total.Scanned,
			"deleted", total.Deleted)
	}

	return total, nil
}

// reduceRange fetches one age range, reduces it bucket by bucket, and
// deletes the complement in paced batches.
func (e *TieringEngine) reduceRange(ctx context.Context, targetID string, tier types.Tier, from, to time.Time) (TierResult, error) {
	var res TierResult

	rows, err := e.results.FindResultsInRange(ctx, targetID, from, to)
	if err != nil {
		return res, err
	}
	res.Scanned = len(rows)
	if len(rows) == 0 {
		return res, nil
	}

	var drop []string
	for _, bucket := range reduce.Partition(rows, tier) {
		keep := reduce.Reduce(bucket, tier.KeepThreshold(), tier.KeepTarget())
		drop = append(drop, reduce.Complement(bucket, keep)...)
	}

	deleted, err := e.deleteBatched(ctx, drop)
	res.Deleted = int(deleted)
	if err != nil {
		return res, err
	}

	return res, nil
}

// deleteBatched deletes ids in limiter-paced batches.
func (e *TieringEngine) deleteBatched(ctx context.Context, ids []string) (int64, error) {
	var deleted int64

	for start := 0; start < len(ids); start += e.batch {
		end := start + e.batch
		if end > len(ids) {
			end = len(ids)
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return deleted, err
			}
		}

		n, err := e.results.DeleteResultsByID(ctx, ids[start:end])
		deleted += n
		if err != nil {
			return deleted, err
		}
	}

	return deleted, nil
}
