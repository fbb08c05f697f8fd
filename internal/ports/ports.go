package ports

import (
	"context"
	"time"

	"EngagementSync/internal/domain"
)

// Batch is the set of candidates one fetch strategy produced for a source.
type Batch struct {
	// Strategy names the fetch path that produced the candidates; it becomes the snapshot label.
	Strategy   string
	Candidates []domain.Candidate
}

// CandidateSource fetches raw candidates for a configured source.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, source string) (Batch, error)
	// FetchCandidateDetail performs the optional second round-trip of a strategy.
	// Strategies without a detail step return the candidate unchanged.
	FetchCandidateDetail(ctx context.Context, source, strategy string, c domain.Candidate) (domain.Candidate, error)
}

// SnapshotStore persists one snapshot per source kind.
type SnapshotStore interface {
	// Load returns (nil, nil) when no snapshot was committed yet.
	Load(ctx context.Context, kind domain.SourceKind) (*domain.Snapshot, error)
	// Save replaces the snapshot atomically.
	Save(ctx context.Context, snapshot domain.Snapshot) error
}

// StateStore persists freshness bookkeeping.
type StateStore interface {
	Load(ctx context.Context) (domain.SyncState, error)
	Save(ctx context.Context, state domain.SyncState) error
}

// HistoryRepository keeps every committed snapshot for trend queries.
type HistoryRepository interface {
	SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error
}

// Notifier sends cycle alerts to an operator channel.
type Notifier interface {
	PublishAlert(ctx context.Context, message string) error
}

// CycleObserver receives every finished cycle report.
type CycleObserver interface {
	ObserveCycle(report domain.CycleReport)
}

// Scheduler controls when cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
