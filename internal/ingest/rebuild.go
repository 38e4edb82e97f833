package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/rollup"
	"github.com/pulsewatch/pulsewatch/internal/types"
)

// RebuildDay recomputes a day's rollup from the surviving raw rows and
// replaces the stored stat. This is a repair path for drift after
// manual row edits; normal ingestion never overwrites, only merges.
//
// Days already past the raw retention window rebuild from the reduced
// row set, so counts can be lower than the original live rollup; the
// caller should know the day's rows are still at full resolution.
func (s *Service) RebuildDay(ctx context.Context, targetID string, day time.Time) (*types.DailyStat, error) {
	day = types.TruncateToDay(day)

	results, err := s.store.FindResultsInRange(ctx, targetID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("rebuild day %s: %w", day.Format("2006-01-02"), err)
	}

	var stat *types.DailyStat
	for i := range results {
		merged := rollup.Merge(stat, targetID, day, rollup.DeltaFromResult(&results[i]))
		stat = &merged
	}
	if stat == nil {
		stat = &types.DailyStat{TargetID: targetID, Date: day}
	}

	if err := s.store.ReplaceDailyStat(ctx, stat); err != nil {
		return nil, fmt.Errorf("rebuild day %s: %w", day.Format("2006-01-02"), err)
	}

	s.log.Info("rebuilt daily stat",
		"target", targetID,
		"day", day.Format("2006-01-02"),
		"results", len(results))

	return stat, nil
}
