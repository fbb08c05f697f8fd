package usecase

import (
	"context"
	"errors"
	"sync"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/ports"
)

type fakeSource struct {
	mu         sync.Mutex
	batches    map[string]ports.Batch
	errs       map[string]error
	hang       map[string]bool
	details    map[string][]byte
	detailErrs map[string]error
	calls      map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		batches:    map[string]ports.Batch{},
		errs:       map[string]error{},
		hang:       map[string]bool{},
		details:    map[string][]byte{},
		detailErrs: map[string]error{},
		calls:      map[string]int{},
	}
}

func (f *fakeSource) FetchCandidates(ctx context.Context, source string) (ports.Batch, error) {
	f.mu.Lock()
	f.calls[source]++
	hang := f.hang[source]
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ports.Batch{}, ctx.Err()
	}
	if err := f.errs[source]; err != nil {
		return ports.Batch{}, err
	}
	return f.batches[source], nil
}

func (f *fakeSource) FetchCandidateDetail(_ context.Context, _, _ string, c domain.Candidate) (domain.Candidate, error) {
	if err := f.detailErrs[c.Ref]; err != nil {
		return c, err
	}
	if payload, ok := f.details[c.Ref]; ok {
		c.Payload = payload
	}
	return c, nil
}

func (f *fakeSource) callCount(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[source]
}

type memoryState struct {
	state   domain.SyncState
	loadErr error
	saves   int
}

func (m *memoryState) Load(context.Context) (domain.SyncState, error) {
	if m.loadErr != nil {
		return domain.SyncState{}, m.loadErr
	}
	return m.state, nil
}

func (m *memoryState) Save(_ context.Context, state domain.SyncState) error {
	m.saves++
	m.state = domain.SyncState{Sources: map[domain.SourceKind]domain.SourceState{}}
	for k, v := range state.Sources {
		m.state.Sources[k] = v
	}
	return nil
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) PublishAlert(_ context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

type failingHistory struct {
	calls int
}

func (f *failingHistory) SaveSnapshot(context.Context, domain.Snapshot) error {
	f.calls++
	return errors.New("database unavailable")
}

type recordingObserver struct {
	reports []domain.CycleReport
}

func (r *recordingObserver) ObserveCycle(report domain.CycleReport) {
	r.reports = append(r.reports, report)
}
