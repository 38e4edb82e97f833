package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/rollup"
	"github.com/pulsewatch/pulsewatch/internal/types"
)

// UpsertDailyStat atomically merges a delta into the (targetID, day)
// rollup and returns the merged row.
//
// The merge arithmetic runs server-side in a single INSERT ... ON
// CONFLICT DO UPDATE, so two concurrent ingests for the same target
// and day cannot lose an update. Unqualified columns in the SET
// expressions refer to the pre-existing row, excluded.* to the
// incoming delta row. The formulas mirror rollup.Merge exactly: counts
// add, the incoming last-response wins, the average is weighted by
// successful pings, min/max merge null-safely.
func (s *Store) UpsertDailyStat(ctx context.Context, targetID string, day time.Time, d rollup.Delta) (*types.DailyStat, error) {
	// The VALUES row is the delta expressed as a fresh stat, so the
	// plain-insert case needs no arithmetic at all.
	fresh := rollup.Merge(nil, targetID, day, d)

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO daily_stats (target_id, date, total_pings, successful_pings, failed_pings,
		                         uptime_pct, last_response_ms, avg_response_ms,
		                         min_response_ms, max_response_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (target_id, date) DO UPDATE SET
			total_pings = total_pings + excluded.total_pings,
			successful_pings = successful_pings + excluded.successful_pings,
			failed_pings = failed_pings + excluded.failed_pings,
			uptime_pct = CASE
				WHEN total_pings + excluded.total_pings > 0
				THEN (successful_pings + excluded.successful_pings) * 100.0
					/ (total_pings + excluded.total_pings)
				ELSE 0
			END,
			last_response_ms = excluded.last_response_ms,
			avg_response_ms = CASE
				WHEN successful_pings + excluded.successful_pings > 0
				THEN (avg_response_ms * successful_pings
					+ excluded.avg_response_ms * excluded.successful_pings)
					/ (successful_pings + excluded.successful_pings)
				ELSE excluded.avg_response_ms
			END,
			min_response_ms = CASE
				WHEN min_response_ms IS NULL THEN excluded.min_response_ms
				WHEN excluded.min_response_ms IS NULL THEN min_response_ms
				ELSE LEAST(min_response_ms, excluded.min_response_ms)
			END,
			max_response_ms = CASE
				WHEN max_response_ms IS NULL THEN excluded.max_response_ms
				WHEN excluded.max_response_ms IS NULL THEN max_response_ms
				ELSE GREATEST(max_response_ms, excluded.max_response_ms)
			END
		RETURNING target_id, date, total_pings, successful_pings, failed_pings,
		          uptime_pct, last_response_ms, avg_response_ms,
		          min_response_ms, max_response_ms
	`, fresh.TargetID, fresh.Date, fresh.TotalPings, fresh.SuccessfulPings, fresh.FailedPings,
		fresh.UptimePct, fresh.LastResponseTimeMs, fresh.AvgResponseTimeMs,
		nullableInt64(fresh.MinResponseTimeMs), nullableInt64(fresh.MaxResponseTimeMs))

	stat, err := scanDailyStat(row)
	if err != nil {
		return nil, fmt.Errorf("upsert daily stat: %w", err)
	}
	return stat, nil
}

// GetDailyStat returns the rollup for a (targetID, day) pair, or
// ErrStatNotFound.
func (s *Store) GetDailyStat(ctx context.Context, targetID string, day time.Time) (*types.DailyStat, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT target_id, date, total_pings, successful_pings, failed_pings,
		       uptime_pct, last_response_ms, avg_response_ms,
		       min_response_ms, max_response_ms
		FROM daily_stats
		WHERE target_id = ? AND date = ?
	`, targetID, types.TruncateToDay(day))

	stat, err := scanDailyStat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily stat: %w", err)
	}
	return stat, nil
}

// FindDailyStatsInRange returns rollups with from <= date <= to,
// ordered by date ascending. This is the read surface dashboards
// consume.
func (s *Store) FindDailyStatsInRange(ctx context.Context, targetID string, from, to time.Time) ([]types.DailyStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_id, date, total_pings, successful_pings, failed_pings,
		       uptime_pct, last_response_ms, avg_response_ms,
		       min_response_ms, max_response_ms
		FROM daily_stats
		WHERE target_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`, targetID, types.TruncateToDay(from), types.TruncateToDay(to))
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []types.DailyStat
	for rows.Next() {
		stat, err := scanDailyStat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		stats = append(stats, *stat)
	}
	return stats, rows.Err()
}

// ReplaceDailyStat overwrites the (targetID, date) row with the given
// stat. Only the rebuild path uses this; normal ingestion always
// merges.
func (s *Store) ReplaceDailyStat(ctx context.Context, stat *types.DailyStat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_stats (target_id, date, total_pings, successful_pings, failed_pings,
		                                    uptime_pct, last_response_ms, avg_response_ms,
		                                    min_response_ms, max_response_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, stat.TargetID, types.TruncateToDay(stat.Date), stat.TotalPings, stat.SuccessfulPings, stat.FailedPings,
		stat.UptimePct, stat.LastResponseTimeMs, stat.AvgResponseTimeMs,
		nullableInt64(stat.MinResponseTimeMs), nullableInt64(stat.MaxResponseTimeMs))
	if err != nil {
		return fmt.Errorf("replace daily stat: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDailyStat(row scanner) (*types.DailyStat, error) {
	var (
		stat     types.DailyStat
		date     time.Time
		min, max sql.NullInt64
	)

	err := row.Scan(&stat.TargetID, &date, &stat.TotalPings, &stat.SuccessfulPings, &stat.FailedPings,
		&stat.UptimePct, &stat.LastResponseTimeMs, &stat.AvgResponseTimeMs, &min, &max)
	if err != nil {
		return nil, err
	}

	stat.Date = types.TruncateToDay(date)
	if min.Valid {
		v := min.Int64
		stat.MinResponseTimeMs = &v
	}
	if max.Valid {
		v := max.Int64
		stat.MaxResponseTimeMs = &v
	}

	return &stat, nil
}
