package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/types"
)

// maxIDsPerDelete caps parameters per DELETE statement. DuckDB copes
// with large parameter lists but we stay conservative.
const maxIDsPerDelete = 500

// InsertResult inserts a single probe result.
func (s *Store) InsertResult(ctx context.Context, r *types.ProbeResult) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO probe_results (id, target_id, ts, success, response_time_ms, status_code, error, protocol)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.TargetID, r.Timestamp.UTC(), r.Success,
		nullableInt64(r.ResponseTimeMs), nullableInt(r.StatusCode), r.Error, string(r.Protocol))
	if err != nil {
		return fmt.Errorf("insert probe result: %w", err)
	}
	return nil
}

// FindResultsInRange returns the target's results with
// from <= ts < to, ordered by timestamp ascending.
func (s *Store) FindResultsInRange(ctx context.Context, targetID string, from, to time.Time) ([]types.ProbeResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_id, ts, success, response_time_ms, status_code, error, protocol
		FROM probe_results
		WHERE target_id = ? AND ts >= ? AND ts < ?
		ORDER BY ts
	`, targetID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query probe results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// FetchResultsOlderThan returns every result older than the cutoff,
// across all targets, ordered by timestamp ascending. Used by the hard
// cutoff to archive rows before deletion.
func (s *Store) FetchResultsOlderThan(ctx context.Context, cutoff time.Time) ([]types.ProbeResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_id, ts, success, response_time_ms, status_code, error, protocol
		FROM probe_results
		WHERE ts < ?
		ORDER BY ts
	`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("query expired probe results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// DeleteResultsByID deletes results by id set and returns the number of
// rows removed. Large sets are deleted in chunks.
func (s *Store) DeleteResultsByID(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	for start := 0; start < len(ids); start += maxIDsPerDelete {
		end := start + maxIDsPerDelete
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		query, args := buildIDDelete(chunk)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return deleted, fmt.Errorf("delete probe results: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += n
		}
	}

	return deleted, nil
}

// buildIDDelete builds a chunked DELETE ... WHERE id IN (...) statement.
func buildIDDelete(ids []string) (string, []interface{}) {
	var query strings.Builder
	query.Grow(50 + len(ids)*2)
	query.WriteString("DELETE FROM probe_results WHERE id IN (")

	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			query.WriteByte(',')
		}
		query.WriteByte('?')
		args = append(args, id)
	}
	query.WriteByte(')')

	return query.String(), args
}

// DeleteResultsOlderThan deletes all results older than the cutoff and
// returns the number of rows removed.
func (s *Store) DeleteResultsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM probe_results WHERE ts < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired probe results: %w", err)
	}
	return res.RowsAffected()
}

// CountResults returns the target's raw row count.
func (s *Store) CountResults(ctx context.Context, targetID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM probe_results WHERE target_id = ?`, targetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count probe results: %w", err)
	}
	return count, nil
}

// TrimResultsToNewest deletes the target's oldest rows so that at most
// maxRows most-recent rows (by timestamp) remain, independent of age.
func (s *Store) TrimResultsToNewest(ctx context.Context, targetID string, maxRows int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM probe_results
		WHERE target_id = ?
		  AND id NOT IN (
			SELECT id FROM probe_results
			WHERE target_id = ?
			ORDER BY ts DESC
			LIMIT ?
		  )
	`, targetID, targetID, maxRows)
	if err != nil {
		return 0, fmt.Errorf("trim probe results: %w", err)
	}
	return res.RowsAffected()
}

// ListResultTargets returns the distinct target ids present in the raw
// result log.
func (s *Store) ListResultTargets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT target_id FROM probe_results ORDER BY target_id`)
	if err != nil {
		return nil, fmt.Errorf("list result targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan target id: %w", err)
		}
		targets = append(targets, id)
	}
	return targets, rows.Err()
}

// scanResults scans rows into a ProbeResult slice.
func scanResults(rows *sql.Rows) ([]types.ProbeResult, error) {
	var results []types.ProbeResult

	for rows.Next() {
		var (
			r        types.ProbeResult
			ts       time.Time
			respMs   sql.NullInt64
			status   sql.NullInt32
			errMsg   sql.NullString
			protocol string
		)

		if err := rows.Scan(&r.ID, &r.TargetID, &ts, &r.Success, &respMs, &status, &errMsg, &protocol); err != nil {
			return nil, fmt.Errorf("scan probe result: %w", err)
		}

		r.Timestamp = ts.UTC()
		r.Protocol = types.Protocol(protocol)
		if respMs.Valid {
			v := respMs.Int64
			r.ResponseTimeMs = &v
		}
		if status.Valid {
			v := int(status.Int32)
			r.StatusCode = &v
		}
		if errMsg.Valid {
			r.Error = errMsg.String
		}

		results = append(results, r)
	}

	return results, rows.Err()
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
