package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/ports"
)

// StateFileStore persists freshness bookkeeping as a small JSON document:
//
//	{"last_update": ..., "next_update": ..., "sources": {"article": {...}, "post": {...}}}
//
// A flat document without "sources" is applied to every known kind.
type StateFileStore struct {
	path  string
	kinds []domain.SourceKind
	write writeFunc
}

var _ ports.StateStore = (*StateFileStore)(nil)

// NewStateFileStore binds the store to a file and the kinds a flat file applies to.
func NewStateFileStore(path string, kinds []domain.SourceKind) *StateFileStore {
	return &StateFileStore{path: path, kinds: kinds, write: writeAll}
}

type stateFile struct {
	LastUpdate *string                   `json:"last_update"`
	NextUpdate *string                   `json:"next_update"`
	Sources    map[string]sourceStateDTO `json:"sources,omitempty"`
}

type sourceStateDTO struct {
	LastSuccessAt  *string `json:"last_success_at"`
	NextEligibleAt *string `json:"next_eligible_at"`
}

// Load reads the state file; a missing file is an empty state.
func (s *StateFileStore) Load(_ context.Context) (domain.SyncState, error) {
	state := domain.SyncState{Sources: map[domain.SourceKind]domain.SourceState{}}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("read state %s: %w", s.path, err)
	}

	var doc stateFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return state, fmt.Errorf("decode state %s: %w", s.path, err)
	}

	if len(doc.Sources) == 0 {
		legacy := domain.SourceState{
			LastSuccessAt:  parseTimePtr(doc.LastUpdate),
			NextEligibleAt: parseTimePtr(doc.NextUpdate),
		}
		if legacy.LastSuccessAt != nil {
			for _, kind := range s.kinds {
				state.Sources[kind] = legacy
			}
		}
		return state, nil
	}

	for name, st := range doc.Sources {
		kind, err := domain.ParseSourceKind(name)
		if err != nil {
			continue
		}
		state.Sources[kind] = domain.SourceState{
			LastSuccessAt:  parseTimePtr(st.LastSuccessAt),
			NextEligibleAt: parseTimePtr(st.NextEligibleAt),
		}
	}
	return state, nil
}

// Save atomically replaces the state file.
func (s *StateFileStore) Save(ctx context.Context, state domain.SyncState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	doc := stateFile{Sources: map[string]sourceStateDTO{}}
	if last, ok := state.Last(); ok {
		doc.LastUpdate = formatTimePtr(&last)
	}

	var next *time.Time
	for kind, st := range state.Sources {
		doc.Sources[string(kind)] = sourceStateDTO{
			LastSuccessAt:  formatTimePtr(st.LastSuccessAt),
			NextEligibleAt: formatTimePtr(st.NextEligibleAt),
		}
		if st.NextEligibleAt != nil {
			if next == nil || st.NextEligibleAt.Before(*next) {
				next = st.NextEligibleAt
			}
		}
	}

	doc.NextUpdate = formatTimePtr(next)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode state: %v", domain.ErrPersistence, err)
	}
	if err := replaceFile(s.path, append(data, '\n'), s.write); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}
