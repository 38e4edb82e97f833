package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/logging"
)

// Enforcer applies the hard cutoff: the absolute age horizon beyond
// which raw rows must not exist, and the per-target row cap. Both
// operations are independent and composable.
type Enforcer struct {
	results  ResultRepository
	settings SettingsRepository

	// archiver, when set, receives expired rows before deletion.
	archiver Archiver

	log *slog.Logger
}

// NewEnforcer creates a hard cutoff enforcer. A nil archiver disables
// archiving.
func NewEnforcer(results ResultRepository, settings SettingsRepository, archiver Archiver) *Enforcer {
	return &Enforcer{
		results:  results,
		settings: settings,
		archiver: archiver,
		log:      logging.Component("cutoff"),
	}
}

// CleanupOldData deletes every probe result older than the configured
// retention horizon. This supersedes tiering for anything beyond it.
// With archiving enabled, expired rows are exported first; an archive
// failure aborts the deletion so no row is lost unexported.
func (e *Enforcer) CleanupOldData(ctx context.Context) (int64, error) {
	days, err := e.settings.RetentionDays(ctx)
	if err != nil {
		return 0, fmt.Errorf("read retention horizon: %w", err)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	if e.archiver != nil {
		expired, err := e.results.FetchResultsOlderThan(ctx, cutoff)
		if err != nil {
			return 0, fmt.Errorf("fetch expired rows: %w", err)
		}
		if len(expired) > 0 {
			if err := e.archiver.Archive(ctx, expired); err != nil {
				return 0, fmt.Errorf("archive expired rows: %w", err)
			}
		}
	}

	deleted, err := e.results.DeleteResultsOlderThan(ctx, cutoff)
	if err != nil {
		return deleted, fmt.Errorf("delete expired rows: %w", err)
	}

	if deleted > 0 {
		e.log.Info("hard cutoff applied",
			"retention_days", days,
			"deleted", deleted)
	}

	return deleted, nil
}

// CapPerTarget trims every target's raw rows to the maxRows most
// recent, independent of age. A safety valve against pathological
// write volume.
func (e *Enforcer) CapPerTarget(ctx context.Context, maxRows int) (int64, error) {
	if maxRows <= 0 {
		return 0, fmt.Errorf("row cap must be positive, got %d", maxRows)
	}

	targets, err := e.results.ListResultTargets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list targets: %w", err)
	}

	var deleted int64
	for _, targetID := range targets {
		n, err := e.results.TrimResultsToNewest(ctx, targetID, maxRows)
		deleted += n
		if err != nil {
			return deleted, fmt.Errorf("cap target %s: %w", targetID, err)
		}
		if n > 0 {
			e.log.Info("row cap applied",
				"target", targetID,
				"max_rows", maxRows,
				"deleted", n)
		}
	}

	return deleted, nil
}
