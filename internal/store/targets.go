package store

import (
	"context"
	"fmt"

	"github.com/pulsewatch/pulsewatch/internal/types"
)

// ListEnabledTargets returns the enabled targets from the target
// configuration store. Read-only here; the admin layer owns the rows.
func (s *Store) ListEnabledTargets(ctx context.Context) ([]types.Target, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, enabled FROM targets WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list enabled targets: %w", err)
	}
	defer rows.Close()

	var targets []types.Target
	for rows.Next() {
		var t types.Target
		if err := rows.Scan(&t.ID, &t.Name, &t.Enabled); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}
