package store

import (
	"context"
	"fmt"
)

// schema contains the DDL for all tables this core reads and writes.
// probe_results and daily_stats are owned here; targets and settings
// are written by the admin layer and only read by this core, but the
// tables are created on first start so a fresh database works.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS probe_results (
		id VARCHAR PRIMARY KEY,
		target_id VARCHAR NOT NULL,
		ts TIMESTAMP NOT NULL,
		success BOOLEAN NOT NULL,
		response_time_ms BIGINT,
		status_code INTEGER,
		error VARCHAR,
		protocol VARCHAR NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_probe_results_target_ts
		ON probe_results (target_id, ts)`,
	`CREATE TABLE IF NOT EXISTS daily_stats (
		target_id VARCHAR NOT NULL,
		date DATE NOT NULL,
		total_pings BIGINT NOT NULL,
		successful_pings BIGINT NOT NULL,
		failed_pings BIGINT NOT NULL,
		uptime_pct DOUBLE NOT NULL,
		last_response_ms BIGINT NOT NULL,
		avg_response_ms DOUBLE NOT NULL,
		min_response_ms BIGINT,
		max_response_ms BIGINT,
		PRIMARY KEY (target_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS targets (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key VARCHAR PRIMARY KEY,
		value VARCHAR NOT NULL
	)`,
}

// InitSchema creates all tables and indexes if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
