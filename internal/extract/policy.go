package extract

import (
	"fmt"
	"math"

	"EngagementSync/internal/domain"
)

// EstimateRule derives an unknown metric from a known one:
//
//	value = max(Min, floor((from / Divisor) * Multiplier) + Base)
//
// A zero Divisor or Multiplier is treated as 1. An empty From makes the rule a constant Base.
type EstimateRule struct {
	Metric     string  `yaml:"metric"`
	From       string  `yaml:"from,omitempty"`
	Multiplier float64 `yaml:"multiplier,omitempty"`
	Divisor    int64   `yaml:"divisor,omitempty"`
	Base       int64   `yaml:"base,omitempty"`
	Min        int64   `yaml:"min,omitempty"`
}

func (r EstimateRule) apply(from int64) int64 {
	v := from
	if r.From == "" {
		v = 0
	}
	if r.Divisor > 0 {
		v /= r.Divisor
	}
	if r.Multiplier > 0 && r.Multiplier != 1 {
		scaled := math.Floor(float64(v) * r.Multiplier)
		if scaled >= math.MaxInt64 {
			v = math.MaxInt64
		} else {
			v = int64(scaled)
		}
	}
	if v > math.MaxInt64-r.Base {
		v = math.MaxInt64
	} else {
		v += r.Base
	}
	if v < r.Min {
		v = r.Min
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Policy is the estimation policy of a source: ordered rules for unknown
// metrics plus the fixed metric set of placeholder records.
type Policy struct {
	Rules       []EstimateRule   `yaml:"rules"`
	Placeholder map[string]int64 `yaml:"placeholder"`
}

func (p Policy) validate() error {
	for _, r := range p.Rules {
		if r.Metric == "" {
			return fmt.Errorf("estimation rule without metric")
		}
		if r.Multiplier < 0 || r.Divisor < 0 || r.Base < 0 || r.Min < 0 {
			return fmt.Errorf("estimation rule for %s has negative parameters", r.Metric)
		}
	}
	for name, v := range p.Placeholder {
		if v < 0 {
			return fmt.Errorf("placeholder metric %s is negative", name)
		}
	}
	return nil
}

// DefaultPolicy returns the estimation constants observed in production for a kind.
func DefaultPolicy(kind domain.SourceKind) Policy {
	if kind == domain.KindPost {
		return Policy{
			Rules: []EstimateRule{
				{Metric: domain.MetricShares, From: domain.MetricLikes, Divisor: 20, Min: 1},
			},
			Placeholder: map[string]int64{
				domain.MetricLikes:    43,
				domain.MetricComments: 5,
				domain.MetricShares:   2,
			},
		}
	}

	return Policy{
		Rules: []EstimateRule{
			{Metric: domain.MetricClaps},
			{Metric: domain.MetricViews, From: domain.MetricClaps, Multiplier: 4.5, Base: 100},
			{Metric: domain.MetricResponses, From: domain.MetricClaps, Divisor: 10, Min: 1},
		},
		Placeholder: map[string]int64{
			domain.MetricClaps:     15,
			domain.MetricResponses: 2,
			domain.MetricViews:     100,
		},
	}
}
