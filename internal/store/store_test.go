package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/types"
)

func TestBuildIDDelete(t *testing.T) {
	ids := []string{"a", "b", "c"}
	query, args := buildIDDelete(ids)

	if !strings.HasPrefix(query, "DELETE FROM probe_results WHERE id IN (") {
		t.Errorf("unexpected query: %s", query)
	}
	if strings.Count(query, "?") != len(ids) {
		t.Errorf("expected %d placeholders, got %d", len(ids), strings.Count(query, "?"))
	}
	if len(args) != len(ids) {
		t.Errorf("expected %d args, got %d", len(ids), len(args))
	}
}

func TestMemStore_RetentionDaysDefault(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	days, err := m.RetentionDays(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != types.DefaultRetentionDays {
		t.Errorf("expected default %d, got %d", types.DefaultRetentionDays, days)
	}

	if err := m.SetRetentionDays(ctx, 7); err != nil {
		t.Fatalf("set: %v", err)
	}
	days, _ = m.RetentionDays(ctx)
	if days != 7 {
		t.Errorf("expected 7, got %d", days)
	}

	if err := m.SetRetentionDays(ctx, 0); err == nil {
		t.Error("expected error for non-positive days")
	}
}

func TestMemStore_TrimResultsToNewest(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 150; i++ {
		r := types.ProbeResult{
			ID:        fmt.Sprintf("r%03d", i),
			TargetID:  "t1",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Success:   true,
			Protocol:  types.ProtocolICMP,
		}
		if err := m.InsertResult(ctx, &r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	deleted, err := m.TrimResultsToNewest(ctx, "t1", 100)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 50 {
		t.Errorf("expected 50 deleted, got %d", deleted)
	}

	count, _ := m.CountResults(ctx, "t1")
	if count != 100 {
		t.Errorf("expected 100 remaining, got %d", count)
	}

	// The survivors are the 100 most recent rows.
	rows, _ := m.FindResultsInRange(ctx, "t1", base, base.Add(24*time.Hour))
	if len(rows) != 100 {
		t.Fatalf("expected 100 rows, got %d", len(rows))
	}
	if !rows[0].Timestamp.Equal(base.Add(50 * time.Minute)) {
		t.Errorf("oldest survivor wrong: %v", rows[0].Timestamp)
	}
}
