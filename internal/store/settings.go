package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pulsewatch/pulsewatch/internal/types"
)

const settingRetentionDays = "data_retention_days"

// RetentionDays reads the admin-settable hard cutoff horizon. Missing
// or unparsable values fall back to the default of 30 days.
func (s *Store) RetentionDays(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, settingRetentionDays).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DefaultRetentionDays, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read retention days: %w", err)
	}

	days, err := strconv.Atoi(value)
	if err != nil || days <= 0 {
		return types.DefaultRetentionDays, nil
	}
	return days, nil
}

// SetRetentionDays stores the hard cutoff horizon. The admin layer
// calls this; it lives here so the settings table has a single owner.
func (s *Store) SetRetentionDays(ctx context.Context, days int) error {
	if days <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", days)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, settingRetentionDays, strconv.Itoa(days))
	if err != nil {
		return fmt.Errorf("set retention days: %w", err)
	}
	return nil
}
