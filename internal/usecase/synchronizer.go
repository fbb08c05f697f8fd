package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/ports"
)

// Synchronizer turns one source's candidates into engagement records.
type Synchronizer struct {
	source ports.CandidateSource
	logger *slog.Logger
}

// NewSynchronizer wires the candidate collaborator.
func NewSynchronizer(source ports.CandidateSource, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{source: source, logger: logger}
}

type collected struct {
	label      string
	candidates int
	records    []domain.EngagementRecord
	err        error
}

// Sync fetches and extracts a source under the plan's fetch timeout.
// A timeout or a collaborator failure fails the source; degraded candidates do not.
func (s *Synchronizer) Sync(ctx context.Context, plan SourcePlan, now time.Time) (outcome domain.SyncOutcome) {
	started := time.Now()
	outcome = domain.SyncOutcome{Source: plan.Name, Kind: plan.Kind}
	defer func() { outcome.Duration = time.Since(started) }()

	if s.source == nil || plan.Extractor == nil {
		outcome.Err = fmt.Errorf("%w: source %s is not wired", domain.ErrFetchFailed, plan.Name)
		return outcome
	}

	if plan.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.FetchTimeout)
		defer cancel()
	}

	done := make(chan collected, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- collected{err: fmt.Errorf("%w: source %s panicked: %v", domain.ErrFetchFailed, plan.Name, r)}
			}
		}()
		done <- s.collect(ctx, plan, now)
	}()

	var res collected
	select {
	case res = <-done:
	case <-ctx.Done():
		outcome.Err = fmt.Errorf("%w: source %s: %w", domain.ErrFetchFailed, plan.Name, ctx.Err())
		return outcome
	}

	outcome.Label = res.label
	outcome.Candidates = res.candidates
	outcome.Records = res.records
	if res.err != nil {
		outcome.Err = res.err
		return outcome
	}

	if outcome.ObservedCount() == 0 {
		outcome.Err = fmt.Errorf("%w: all %d records of %s are placeholders", domain.ErrExtractionDegraded, len(outcome.Records), plan.Name)
		return outcome
	}

	outcome.Succeeded = true
	return outcome
}

func (s *Synchronizer) collect(ctx context.Context, plan SourcePlan, now time.Time) collected {
	batch, err := s.source.FetchCandidates(ctx, plan.Name)
	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		}
		return collected{err: err}
	}

	candidates := batch.Candidates
	if plan.MaxCandidates > 0 && len(candidates) > plan.MaxCandidates {
		candidates = candidates[:plan.MaxCandidates]
	}
	if len(candidates) == 0 {
		return collected{label: batch.Strategy, err: fmt.Errorf("%w: source %s returned no candidates", domain.ErrFetchFailed, plan.Name)}
	}

	res := collected{label: batch.Strategy, candidates: len(candidates)}
	index := make(map[string]int, len(candidates))

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			res.err = fmt.Errorf("%w: source %s: %w", domain.ErrFetchFailed, plan.Name, err)
			return res
		}

		rec := s.extractOne(ctx, plan, batch.Strategy, c, now)
		if rec.Author.Name == "" {
			rec.Author.Name = plan.Author
		}

		if i, seen := index[rec.ExternalID]; seen {
			if res.records[i].Degraded && !rec.Degraded {
				res.records[i] = rec
			}
			continue
		}
		index[rec.ExternalID] = len(res.records)
		res.records = append(res.records, rec)
	}
	return res
}

func (s *Synchronizer) extractOne(ctx context.Context, plan SourcePlan, strategy string, c domain.Candidate, now time.Time) domain.EngagementRecord {
	detailed, err := s.source.FetchCandidateDetail(ctx, plan.Name, strategy, c)
	if err != nil {
		s.logger.Warn("candidate detail failed", "source", plan.Name, "ref", c.Ref, "error", err)
		return plan.Extractor.Placeholder(c, now)
	}

	rec, err := plan.Extractor.Extract(detailed, now)
	if err != nil {
		s.logger.Warn("candidate degraded", "source", plan.Name, "ref", c.Ref, "error", err)
	}
	return rec
}
