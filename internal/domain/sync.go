package domain

import (
	"time"
)

// SourceState tracks the freshness of one source kind.
type SourceState struct {
	LastSuccessAt  *time.Time
	NextEligibleAt *time.Time
}

// SyncState is the persisted freshness bookkeeping of a deployment.
type SyncState struct {
	Sources map[SourceKind]SourceState
}

// Last returns the most recent success across all sources.
func (s SyncState) Last() (time.Time, bool) {
	var (
		latest time.Time
		found  bool
	)
	for _, st := range s.Sources {
		if st.LastSuccessAt == nil {
			continue
		}
		if !found || st.LastSuccessAt.After(latest) {
			latest = *st.LastSuccessAt
			found = true
		}
	}
	return latest, found
}

// SyncOutcome is the result of synchronizing one source within a cycle.
type SyncOutcome struct {
	Source     string
	Kind       SourceKind
	Label      string
	Records    []EngagementRecord
	Candidates int
	Succeeded  bool
	Skipped    bool
	Err        error
	Duration   time.Duration
}

// ObservedCount is the number of records that are not placeholders.
func (o SyncOutcome) ObservedCount() int {
	count := 0
	for _, rec := range o.Records {
		if !rec.Degraded {
			count++
		}
	}
	return count
}

// DegradedCount is the number of placeholder records.
func (o SyncOutcome) DegradedCount() int {
	return len(o.Records) - o.ObservedCount()
}

// EstimatedCount is the number of records with at least one inferred metric.
func (o SyncOutcome) EstimatedCount() int {
	count := 0
	for _, rec := range o.Records {
		if rec.Estimated {
			count++
		}
	}
	return count
}

// Fresh reports whether the outcome may advance the freshness gate.
func (o SyncOutcome) Fresh() bool {
	return o.Succeeded && o.ObservedCount() > 0
}

// State is the per-source label used in reports and metrics.
func (o SyncOutcome) State() string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Succeeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// CycleStatus summarizes a whole cycle.
type CycleStatus string

const (
	CycleSuccess  CycleStatus = "success"
	CycleDegraded CycleStatus = "degraded"
	CycleFailure  CycleStatus = "failure"
	CycleSkipped  CycleStatus = "skipped"
)

// ExitCode maps a cycle status to a process exit status.
func (s CycleStatus) ExitCode() int {
	switch s {
	case CycleFailure:
		return 1
	case CycleDegraded:
		return 2
	default:
		return 0
	}
}

// CycleReport is what a caller of RunCycle receives.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Forced     bool
	PerSource  []SyncOutcome
	Status     CycleStatus
}

// Outcome finds the outcome of a named source.
func (r CycleReport) Outcome(source string) (SyncOutcome, bool) {
	for _, o := range r.PerSource {
		if o.Source == source {
			return o, true
		}
	}
	return SyncOutcome{}, false
}

// EvaluateStatus derives the cycle status from per-source outcomes.
func EvaluateStatus(outcomes []SyncOutcome) CycleStatus {
	attempted, succeeded := 0, 0
	for _, o := range outcomes {
		if o.Skipped {
			continue
		}
		attempted++
		if o.Succeeded {
			succeeded++
		}
	}

	switch {
	case attempted == 0:
		return CycleSkipped
	case succeeded == attempted:
		return CycleSuccess
	case succeeded > 0:
		return CycleDegraded
	default:
		return CycleFailure
	}
}
