package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pulsewatch/pulsewatch/internal/logging"
)

// SweeperOptions configures the retention sweeper.
type SweeperOptions struct {
	// Workers is the number of targets tiered in parallel.
	Workers int

	// MaxRowsPerTarget is the per-target raw row cap.
	MaxRowsPerTarget int
}

// Summary aggregates one sweep run.
type Summary struct {
	TotalScanned int
	TotalDeleted int

	// PerTargetErrors records isolated tiering failures by target id.
	PerTargetErrors map[string]error

	// CleanupErr and CapErr record failures of the global sub-steps.
	// Per-target tiering results already committed are retained.
	CleanupErr error
	CapErr     error
}

// Sweeper sequences a full retention run: per-target tiering, then the
// global hard cutoff, then the per-target row cap. A failure on one
// target never aborts the others.
type Sweeper struct {
	targets  TargetRepository
	tiering  *TieringEngine
	enforcer *Enforcer
	opts     SweeperOptions

	// flight ensures two overlapping sweeps never tier the same target
	// concurrently against a moving row set.
	flight singleflight.Group

	log *slog.Logger
}

// NewSweeper creates a retention sweeper.
func NewSweeper(targets TargetRepository, tiering *TieringEngine, enforcer *Enforcer, opts SweeperOptions) *Sweeper {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxRowsPerTarget <= 0 {
		opts.MaxRowsPerTarget = 100000
	}

	return &Sweeper{
		targets:  targets,
		tiering:  tiering,
		enforcer: enforcer,
		opts:     opts,
		log:      logging.Component("sweeper"),
	}
}

// RunSweep runs one full retention pass over all enabled targets.
// Cancellation is honored between targets; a target already being
// tiered finishes its committed deletions.
func (s *Sweeper) RunSweep(ctx context.Context) (Summary, error) {
	summary := Summary{PerTargetErrors: make(map[string]error)}

	targets, err := s.targets.ListEnabledTargets(ctx)
	if err != nil {
		return summary, fmt.Errorf("list enabled targets: %w", err)
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}

		targetID := target.ID
		g.Go(func() error {
			v, err, _ := s.flight.Do(targetID, func() (interface{}, error) {
				return s.tiering.TierTarget(ctx, targetID)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Error("tiering failed", "target", targetID, "error", err)
				summary.PerTargetErrors[targetID] = err
				return nil
			}
			res := v.(TierResult)
			summary.TotalScanned += res.Scanned
			summary.TotalDeleted += res.Deleted
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if deleted, err := s.enforcer.CleanupOldData(ctx); err != nil {
		s.log.Error("hard cutoff failed", "error", err)
		summary.CleanupErr = err
	} else {
		summary.TotalDeleted += int(deleted)
	}

	if deleted, err := s.enforcer.CapPerTarget(ctx, s.opts.MaxRowsPerTarget); err != nil {
		s.log.Error("row cap failed", "error", err)
		summary.CapErr = err
	} else {
		summary.TotalDeleted += int(deleted)
	}

	if summary.TotalDeleted > 0 {
		s.log.Info("sweep finished",
			"targets", len(targets),
			"scanned", summary.TotalScanned,
			"deleted", summary.TotalDeleted,
			"failed_targets", len(summary.PerTargetErrors))
	}

	return summary, nil
}
