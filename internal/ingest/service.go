// Package ingest implements the statistics aggregation entry point:
// every completed probe result is recorded and folded into its
// (target, day) rollup in one pass.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulsewatch/pulsewatch/internal/logging"
	"github.com/pulsewatch/pulsewatch/internal/rollup"
	"github.com/pulsewatch/pulsewatch/internal/types"
)

// Store is the persistence surface the aggregator needs. Both
// store.Store and store.MemStore satisfy it.
type Store interface {
	InsertResult(ctx context.Context, r *types.ProbeResult) error
	UpsertDailyStat(ctx context.Context, targetID string, day time.Time, d rollup.Delta) (*types.DailyStat, error)
	FindResultsInRange(ctx context.Context, targetID string, from, to time.Time) ([]types.ProbeResult, error)
	ReplaceDailyStat(ctx context.Context, stat *types.DailyStat) error
}

// Service ingests probe results produced by the prober.
type Service struct {
	store   Store
	latency *LatencyTracker
	log     *slog.Logger
}

// New creates an ingestion service. A nil tracker disables percentile
// tracking.
func New(store Store, latency *LatencyTracker) *Service {
	return &Service{
		store:   store,
		latency: latency,
		log:     logging.Component("ingest"),
	}
}

// Ingest records a probe result and atomically merges it into the
// day's rollup, returning the merged stat.
//
// This sits on the probe completion path: one insert, one upsert, no
// scans. Storage errors propagate to the caller, which decides whether
// to retry or drop the update; no retry happens here.
func (s *Service) Ingest(ctx context.Context, r types.ProbeResult) (*types.DailyStat, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Timestamp = r.Timestamp.UTC()

	if err := s.store.InsertResult(ctx, &r); err != nil {
		return nil, fmt.Errorf("record probe result: %w", err)
	}

	stat, err := s.store.UpsertDailyStat(ctx, r.TargetID, r.Day(), rollup.DeltaFromResult(&r))
	if err != nil {
		return nil, fmt.Errorf("merge daily stat: %w", err)
	}

	if s.latency != nil && r.Success && r.ResponseTimeMs != nil {
		s.latency.Observe(r.TargetID, r.Day(), float64(*r.ResponseTimeMs))
	}

	return stat, nil
}
