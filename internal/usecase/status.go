package usecase

import (
	"context"
	"fmt"
	"time"

	"EngagementSync/internal/domain"
)

// SourceStatus describes how fresh a source's committed data is.
type SourceStatus struct {
	Source         string
	Kind           domain.SourceKind
	Label          string
	GeneratedAt    *time.Time
	LastSuccessAt  *time.Time
	NextEligibleAt *time.Time
	Eligible       bool
	Records        int
	Estimated      int
	Degraded       int
	Totals         map[string]int64
}

// Stale reports whether the snapshot is missing or older than the interval allows.
func (s SourceStatus) Stale(now time.Time, interval time.Duration) bool {
	return s.GeneratedAt == nil || now.Sub(*s.GeneratedAt) >= interval
}

// Status inspects the committed snapshots and the freshness state without fetching anything.
func (p *Pipeline) Status(ctx context.Context, now time.Time) ([]SourceStatus, error) {
	if err := p.gate.Load(ctx); err != nil {
		p.logger.Warn("sync state unreadable", "error", err)
	}

	statuses := make([]SourceStatus, 0, len(p.sources))
	for _, plan := range p.sources {
		st := SourceStatus{
			Source:   plan.Name,
			Kind:     plan.Kind,
			Eligible: p.gate.IsEligible(plan.Kind, now),
			Totals:   map[string]int64{},
		}
		if last, ok := p.gate.LastSuccessAt(plan.Kind); ok {
			st.LastSuccessAt = &last
		}
		if next, ok := p.gate.NextEligibleAt(plan.Kind); ok {
			st.NextEligibleAt = &next
		}

		if p.snapshots != nil {
			snapshot, err := p.snapshots.Load(ctx, plan.Kind)
			if err != nil {
				return nil, fmt.Errorf("status of %s: %w", plan.Name, err)
			}
			if snapshot != nil {
				generated := snapshot.GeneratedAt
				st.GeneratedAt = &generated
				st.Label = snapshot.SourceLabel
				st.Records = len(snapshot.Records)
				st.Estimated = snapshot.EstimatedCount()
				for _, rec := range snapshot.Records {
					if rec.Degraded {
						st.Degraded++
					}
				}
				st.Totals = snapshot.Totals()
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// Plans returns the configured sources in cycle order.
func (p *Pipeline) Plans() []SourcePlan {
	return append([]SourcePlan(nil), p.sources...)
}
