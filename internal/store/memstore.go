package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/rollup"
	"github.com/pulsewatch/pulsewatch/internal/types"
)

// MemStore is an in-memory implementation of the same repository
// surface as Store. It backs tests and dry runs; the daily-stat merge
// uses rollup.Merge under a mutex where DuckDB would use the atomic
// ON CONFLICT upsert.
type MemStore struct {
	mu sync.Mutex

	// results is keyed by result id, stats by targetID|date.
	results  map[string]types.ProbeResult
	stats    map[string]types.DailyStat
	targets  []types.Target
	settings map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		results:  make(map[string]types.ProbeResult),
		stats:    make(map[string]types.DailyStat),
		settings: make(map[string]string),
	}
}

func statKey(targetID string, day time.Time) string {
	return targetID + "|" + types.TruncateToDay(day).Format("2006-01-02")
}

// AddTarget registers a target. Test setup helper; the admin layer
// owns targets in the real store.
func (m *MemStore) AddTarget(t types.Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, t)
}

func (m *MemStore) InsertResult(_ context.Context, r *types.ProbeResult) error {
	if err := r.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.ID] = *r
	return nil
}

func (m *MemStore) FindResultsInRange(_ context.Context, targetID string, from, to time.Time) ([]types.ProbeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.ProbeResult
	for _, r := range m.results {
		if r.TargetID == targetID && !r.Timestamp.Before(from) && r.Timestamp.Before(to) {
			out = append(out, r)
		}
	}
	sortResults(out)
	return out, nil
}

func (m *MemStore) FetchResultsOlderThan(_ context.Context, cutoff time.Time) ([]types.ProbeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.ProbeResult
	for _, r := range m.results {
		if r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	sortResults(out)
	return out, nil
}

func (m *MemStore) DeleteResultsByID(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := m.results[id]; ok {
			delete(m.results, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemStore) DeleteResultsOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, r := range m.results {
		if r.Timestamp.Before(cutoff) {
			delete(m.results, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemStore) CountResults(_ context.Context, targetID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, r := range m.results {
		if r.TargetID == targetID {
			count++
		}
	}
	return count, nil
}

func (m *MemStore) TrimResultsToNewest(_ context.Context, targetID string, maxRows int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []types.ProbeResult
	for _, r := range m.results {
		if r.TargetID == targetID {
			rows = append(rows, r)
		}
	}
	if len(rows) <= maxRows {
		return 0, nil
	}

	// Newest first; everything past maxRows goes.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Timestamp.After(rows[j].Timestamp)
	})

	var deleted int64
	for _, r := range rows[maxRows:] {
		delete(m.results, r.ID)
		deleted++
	}
	return deleted, nil
}

func (m *MemStore) ListResultTargets(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	var targets []string
	for _, r := range m.results {
		if _, ok := seen[r.TargetID]; !ok {
			seen[r.TargetID] = struct{}{}
			targets = append(targets, r.TargetID)
		}
	}
	sort.Strings(targets)
	return targets, nil
}

func (m *MemStore) UpsertDailyStat(_ context.Context, targetID string, day time.Time, d rollup.Delta) (*types.DailyStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := statKey(targetID, day)

	var existing *types.DailyStat
	if stat, ok := m.stats[key]; ok {
		existing = &stat
	}

	merged := rollup.Merge(existing, targetID, day, d)
	m.stats[key] = merged
	return &merged, nil
}

func (m *MemStore) GetDailyStat(_ context.Context, targetID string, day time.Time) (*types.DailyStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stat, ok := m.stats[statKey(targetID, day)]
	if !ok {
		return nil, ErrStatNotFound
	}
	return &stat, nil
}

func (m *MemStore) FindDailyStatsInRange(_ context.Context, targetID string, from, to time.Time) ([]types.DailyStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from = types.TruncateToDay(from)
	to = types.TruncateToDay(to)

	var out []types.DailyStat
	for _, stat := range m.stats {
		if stat.TargetID == targetID && !stat.Date.Before(from) && !stat.Date.After(to) {
			out = append(out, stat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemStore) ReplaceDailyStat(_ context.Context, stat *types.DailyStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *stat
	copied.Date = types.TruncateToDay(stat.Date)
	m.stats[statKey(stat.TargetID, stat.Date)] = copied
	return nil
}

func (m *MemStore) ListEnabledTargets(_ context.Context) ([]types.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var enabled []types.Target
	for _, t := range m.targets {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}
	return enabled, nil
}

func (m *MemStore) RetentionDays(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.settings[settingRetentionDays]; ok {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			return days, nil
		}
	}
	return types.DefaultRetentionDays, nil
}

func (m *MemStore) SetRetentionDays(_ context.Context, days int) error {
	if days <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", days)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settingRetentionDays] = strconv.Itoa(days)
	return nil
}

func sortResults(rows []types.ProbeResult) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
}
