package retention

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/store"
	"github.com/pulsewatch/pulsewatch/internal/types"
)

func seedAged(t *testing.T, m *store.MemStore, targetID string, age time.Duration, n int, prefix string) {
	t.Helper()
	ctx := context.Background()

	base := time.Now().UTC().Add(-age)
	for i := 0; i < n; i++ {
		ms := int64(50)
		r := types.ProbeResult{
			ID:             fmt.Sprintf("%s%03d", prefix, i),
			TargetID:       targetID,
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			Success:        true,
			ResponseTimeMs: &ms,
			Protocol:       types.ProtocolHTTP,
		}
		if err := m.InsertResult(ctx, &r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestEnforcer_CleanupOldData(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	if err := m.SetRetentionDays(ctx, 7); err != nil {
		t.Fatalf("set retention: %v", err)
	}

	seedAged(t, m, "t1", 10*24*time.Hour, 5, "old")
	seedAged(t, m, "t1", 3*24*time.Hour, 5, "new")

	e := NewEnforcer(m, m, nil)
	deleted, err := e.CleanupOldData(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 5 {
		t.Errorf("deleted = %d, want 5", deleted)
	}

	count, _ := m.CountResults(ctx, "t1")
	if count != 5 {
		t.Errorf("%d rows remain, want 5", count)
	}

	// Only the recent rows survive.
	rows, _ := m.FindResultsInRange(ctx, "t1",
		time.Now().UTC().AddDate(0, 0, -30), time.Now().UTC())
	for _, r := range rows {
		if r.ID[:3] == "old" {
			t.Errorf("expired row %s survived", r.ID)
		}
	}
}

func TestEnforcer_CleanupDefaultRetention(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()

	// No setting stored: the 30 day default applies.
	seedAged(t, m, "t1", 45*24*time.Hour, 3, "old")
	seedAged(t, m, "t1", 20*24*time.Hour, 3, "new")

	e := NewEnforcer(m, m, nil)
	deleted, err := e.CleanupOldData(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
}

type failingArchiver struct{}

func (failingArchiver) Archive(context.Context, []types.ProbeResult) error {
	return errors.New("disk full")
}

type recordingArchiver struct {
	rows []types.ProbeResult
}

func (a *recordingArchiver) Archive(_ context.Context, rows []types.ProbeResult) error {
	a.rows = append(a.rows, rows...)
	return nil
}

func TestEnforcer_ArchiveFailureAbortsDeletion(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	if err := m.SetRetentionDays(ctx, 7); err != nil {
		t.Fatalf("set retention: %v", err)
	}
	seedAged(t, m, "t1", 10*24*time.Hour, 5, "old")

	e := NewEnforcer(m, m, failingArchiver{})
	if _, err := e.CleanupOldData(ctx); err == nil {
		t.Fatal("expected archive error")
	}

	count, _ := m.CountResults(ctx, "t1")
	if count != 5 {
		t.Errorf("rows deleted despite archive failure: %d remain", count)
	}
}

func TestEnforcer_ArchivesBeforeDeleting(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	if err := m.SetRetentionDays(ctx, 7); err != nil {
		t.Fatalf("set retention: %v", err)
	}
	seedAged(t, m, "t1", 10*24*time.Hour, 4, "old")

	arch := &recordingArchiver{}
	e := NewEnforcer(m, m, arch)
	deleted, err := e.CleanupOldData(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 4 {
		t.Errorf("deleted = %d, want 4", deleted)
	}
	if len(arch.rows) != 4 {
		t.Errorf("archived %d rows, want 4", len(arch.rows))
	}
}

func TestEnforcer_CapPerTarget(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	seedAged(t, m, "t1", 24*time.Hour, 150, "c")

	e := NewEnforcer(m, m, nil)
	deleted, err := e.CapPerTarget(ctx, 100)
	if err != nil {
		t.Fatalf("cap: %v", err)
	}
	if deleted != 50 {
		t.Errorf("deleted = %d, want 50", deleted)
	}

	count, _ := m.CountResults(ctx, "t1")
	if count != 100 {
		t.Errorf("%d rows remain, want 100", count)
	}

	// The newest rows survive; c000 is the oldest seeded row.
	rows, _ := m.FindResultsInRange(ctx, "t1",
		time.Now().UTC().AddDate(0, 0, -2), time.Now().UTC())
	for _, r := range rows {
		if r.ID == "c000" {
			t.Error("oldest row survived the cap")
		}
	}
}

func TestEnforcer_CapRejectsNonPositive(t *testing.T) {
	e := NewEnforcer(store.NewMemStore(), store.NewMemStore(), nil)
	if _, err := e.CapPerTarget(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero cap")
	}
}
