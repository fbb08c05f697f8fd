package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"EngagementSync/internal/config"
	"EngagementSync/internal/domain"
	"EngagementSync/internal/ports"
	"EngagementSync/internal/scanner"
)

// StrategySource implements CandidateSource via registered scanner strategies.
// Each source lists its strategies in preference order; the first one that
// yields candidates wins.
type StrategySource struct {
	registry *scanner.Registry
	sources  map[string]config.SourceConfig
	logger   *slog.Logger
}

var _ ports.CandidateSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	byName := make(map[string]config.SourceConfig, len(sources))
	for _, src := range sources {
		byName[src.Name] = src
	}
	return &StrategySource{
		registry: reg,
		sources:  byName,
		logger:   log,
	}
}

// FetchCandidates walks the strategy chain of a source.
func (s *StrategySource) FetchCandidates(ctx context.Context, source string) (ports.Batch, error) {
	if s.registry == nil {
		return ports.Batch{}, fmt.Errorf("scanner registry is not configured")
	}
	src, ok := s.sources[source]
	if !ok {
		return ports.Batch{}, fmt.Errorf("source %s is not configured", source)
	}

	var errs []error
	for _, st := range src.Strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		strategy, err := s.registry.Resolve(st.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		s.debug("run strategy", "source", source, "strategy", st.Name)
		candidates, err := strategy.Scan(ctx, s.request(src, st))
		if err != nil {
			s.warn("strategy failed", "source", source, "strategy", st.Name, "error", err)
			errs = append(errs, fmt.Errorf("strategy %s: %w", st.Name, err))
			continue
		}
		if len(candidates) == 0 {
			s.debug("strategy returned nothing", "source", source, "strategy", st.Name)
			errs = append(errs, fmt.Errorf("strategy %s returned no candidates", st.Name))
			continue
		}

		if src.MaxCandidates > 0 && len(candidates) > src.MaxCandidates {
			candidates = candidates[:src.MaxCandidates]
		}
		s.debug("strategy produced candidates", "source", source, "strategy", st.Name, "count", len(candidates))
		return ports.Batch{Strategy: st.Name, Candidates: candidates}, nil
	}

	return ports.Batch{}, fmt.Errorf("%w: source %s: %w", domain.ErrFetchFailed, source, errors.Join(errs...))
}

// FetchCandidateDetail runs the detail step of the strategy that produced the candidate.
func (s *StrategySource) FetchCandidateDetail(ctx context.Context, source, strategyName string, c domain.Candidate) (domain.Candidate, error) {
	src, ok := s.sources[source]
	if !ok {
		return c, fmt.Errorf("source %s is not configured", source)
	}
	strategy, err := s.registry.Resolve(strategyName)
	if err != nil {
		return c, err
	}
	fetcher, ok := strategy.(scanner.DetailFetcher)
	if !ok {
		return c, nil
	}

	st := config.StrategyConfig{Name: strategyName}
	for _, candidate := range src.Strategies {
		if candidate.Name == strategyName {
			st = candidate
			break
		}
	}
	return fetcher.FetchDetail(ctx, s.request(src, st), c)
}

func (s *StrategySource) request(src config.SourceConfig, st config.StrategyConfig) scanner.Request {
	return scanner.Request{
		Source:  src.Name,
		Kind:    src.Kind,
		Limit:   src.MaxCandidates,
		Options: st.Options,
	}
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
