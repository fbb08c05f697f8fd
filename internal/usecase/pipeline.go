package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Sources    []SourcePlan
	Candidates ports.CandidateSource
	Snapshots  ports.SnapshotStore
	State      ports.StateStore
	History    ports.HistoryRepository
	Notifier   ports.Notifier
	Observer   ports.CycleObserver
	Logger     *slog.Logger
}

// Pipeline implements the engagement synchronization cycle.
type Pipeline struct {
	sources   []SourcePlan
	snapshots ports.SnapshotStore
	gate      *Gate
	sync      *Synchronizer
	writer    *Writer
	notifier  ports.Notifier
	observer  ports.CycleObserver
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	intervals := make(map[domain.SourceKind]time.Duration, len(deps.Sources))
	for _, src := range deps.Sources {
		intervals[src.Kind] = src.MinInterval
	}

	return &Pipeline{
		sources:   deps.Sources,
		snapshots: deps.Snapshots,
		gate:      NewGate(deps.State, intervals, logger.With("component", "gate")),
		sync:      NewSynchronizer(deps.Candidates, logger.With("component", "synchronizer")),
		writer:    NewWriter(deps.Snapshots, deps.History, logger.With("component", "writer")),
		notifier:  deps.Notifier,
		observer:  deps.Observer,
		logger:    logger.With("component", "pipeline"),
	}
}

// RunCycle synchronizes every configured source in order. Failures stay
// inside the source that produced them; the report is always returned.
func (p *Pipeline) RunCycle(ctx context.Context, now time.Time, force bool) domain.CycleReport {
	started := time.Now()
	report := domain.CycleReport{
		ID:        uuid.NewString(),
		StartedAt: now,
		Forced:    force,
	}
	log := p.logger.With("cycle_id", report.ID)
	log.Info("cycle started", "sources", len(p.sources), "force", force)

	if err := p.gate.Load(ctx); err != nil {
		log.Warn("sync state unreadable, treating every source as eligible", "error", err)
	}

	for _, plan := range p.sources {
		outcome := p.runSource(ctx, log, plan, now, force)
		report.PerSource = append(report.PerSource, outcome)
	}

	report.Status = domain.EvaluateStatus(report.PerSource)
	report.FinishedAt = report.StartedAt.Add(time.Since(started))

	log.Info("cycle finished", "status", report.Status, "duration", report.FinishedAt.Sub(report.StartedAt))

	p.alert(ctx, log, report)
	if p.observer != nil {
		p.observer.ObserveCycle(report)
	}
	return report
}

func (p *Pipeline) runSource(ctx context.Context, log *slog.Logger, plan SourcePlan, now time.Time, force bool) (outcome domain.SyncOutcome) {
	log = log.With("source", plan.Name, "kind", plan.Kind)

	defer func() {
		if r := recover(); r != nil {
			log.Error("source panicked", "panic", r)
			outcome = domain.SyncOutcome{
				Source: plan.Name,
				Kind:   plan.Kind,
				Err:    fmt.Errorf("%w: source %s panicked: %v", domain.ErrFetchFailed, plan.Name, r),
			}
		}
	}()

	if !force && !p.gate.IsEligible(plan.Kind, now) {
		next, _ := p.gate.NextEligibleAt(plan.Kind)
		log.Info("source skipped, too early", "next_eligible_at", next)
		return domain.SyncOutcome{
			Source:  plan.Name,
			Kind:    plan.Kind,
			Skipped: true,
			Err:     fmt.Errorf("%w: %s eligible at %s", domain.ErrRateLimited, plan.Name, next.Format(time.RFC3339)),
		}
	}

	outcome = p.sync.Sync(ctx, plan, now)
	if !outcome.Succeeded {
		log.Error("source failed, snapshot kept",
			"candidates", outcome.Candidates,
			"records", len(outcome.Records),
			"duration", outcome.Duration,
			"error", outcome.Err)
		return outcome
	}

	snapshot, err := p.writer.Commit(ctx, plan, outcome, now)
	if err != nil {
		outcome.Succeeded = false
		outcome.Err = err
		log.Error("snapshot commit failed", "error", err)
		return outcome
	}

	if outcome.Fresh() {
		if err := p.gate.RecordSuccess(ctx, plan.Kind, now); err != nil {
			log.Error("sync state not saved", "error", err)
		}
	}

	log.Info("source synchronized",
		"label", outcome.Label,
		"records", len(snapshot.Records),
		"estimated", outcome.EstimatedCount(),
		"degraded", outcome.DegradedCount(),
		"duration", outcome.Duration)
	return outcome
}

func (p *Pipeline) alert(ctx context.Context, log *slog.Logger, report domain.CycleReport) {
	if p.notifier == nil {
		return
	}
	if report.Status != domain.CycleDegraded && report.Status != domain.CycleFailure {
		return
	}
	if err := p.notifier.PublishAlert(ctx, FormatReport(report)); err != nil {
		log.Warn("alert not delivered", "error", err)
	}
}

// FormatReport renders a cycle report as plain text.
func FormatReport(report domain.CycleReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "engagement sync %s (cycle %s)\n", report.Status, report.ID)
	for _, o := range report.PerSource {
		switch {
		case o.Skipped:
			fmt.Fprintf(&b, "- %s: skipped\n", o.Source)
		case o.Succeeded:
			fmt.Fprintf(&b, "- %s: %d records via %s, %d estimated, %d degraded\n",
				o.Source, len(o.Records), o.Label, o.EstimatedCount(), o.DegradedCount())
		default:
			reason := "unknown error"
			if o.Err != nil {
				reason = o.Err.Error()
			}
			fmt.Fprintf(&b, "- %s: failed: %s\n", o.Source, reason)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// IsRateLimited reports whether an outcome was skipped by the freshness gate.
func IsRateLimited(o domain.SyncOutcome) bool {
	return o.Skipped && errors.Is(o.Err, domain.ErrRateLimited)
}
