package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/ports"
)

// Gate decides whether a source may be synchronized again.
type Gate struct {
	store     ports.StateStore
	intervals map[domain.SourceKind]time.Duration
	state     domain.SyncState
	logger    *slog.Logger
}

// NewGate binds the gate to its persisted state and per-kind minimum intervals.
func NewGate(store ports.StateStore, intervals map[domain.SourceKind]time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		store:     store,
		intervals: intervals,
		state:     domain.SyncState{Sources: map[domain.SourceKind]domain.SourceState{}},
		logger:    logger,
	}
}

// Load refreshes the in-memory state. An unreadable state file leaves every source eligible.
func (g *Gate) Load(ctx context.Context) error {
	g.state = domain.SyncState{Sources: map[domain.SourceKind]domain.SourceState{}}
	if g.store == nil {
		return nil
	}
	state, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}
	if state.Sources != nil {
		g.state = state
	}
	return nil
}

// State returns the in-memory state.
func (g *Gate) State() domain.SyncState {
	return g.state
}

// IsEligible reports whether at least MinInterval elapsed since the last success.
func (g *Gate) IsEligible(kind domain.SourceKind, now time.Time) bool {
	last, ok := g.LastSuccessAt(kind)
	if !ok {
		return true
	}
	return now.Sub(last) >= g.intervals[kind]
}

// LastSuccessAt returns the last recorded success of a kind.
func (g *Gate) LastSuccessAt(kind domain.SourceKind) (time.Time, bool) {
	st, ok := g.state.Sources[kind]
	if !ok || st.LastSuccessAt == nil {
		return time.Time{}, false
	}
	return *st.LastSuccessAt, true
}

// NextEligibleAt is LastSuccessAt + MinInterval; false when the kind never succeeded.
func (g *Gate) NextEligibleAt(kind domain.SourceKind) (time.Time, bool) {
	last, ok := g.LastSuccessAt(kind)
	if !ok {
		return time.Time{}, false
	}
	return last.Add(g.intervals[kind]), true
}

// RecordSuccess advances the kind and persists the whole state.
func (g *Gate) RecordSuccess(ctx context.Context, kind domain.SourceKind, now time.Time) error {
	last := now.UTC()
	next := last.Add(g.intervals[kind])
	g.state.Sources[kind] = domain.SourceState{LastSuccessAt: &last, NextEligibleAt: &next}

	g.logger.Debug("record success", "kind", kind, "next_eligible_at", next)
	if g.store == nil {
		return nil
	}
	return g.store.Save(ctx, g.state)
}
