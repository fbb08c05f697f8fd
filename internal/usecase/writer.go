package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/ports"
)

// Writer commits successful outcomes as snapshots.
type Writer struct {
	store   ports.SnapshotStore
	history ports.HistoryRepository
	logger  *slog.Logger
}

// NewWriter wires the snapshot store and the optional history repository.
func NewWriter(store ports.SnapshotStore, history ports.HistoryRepository, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: store, history: history, logger: logger}
}

// Commit replaces the snapshot of the outcome's kind. Failed outcomes leave
// the committed snapshot untouched and return their error.
func (w *Writer) Commit(ctx context.Context, plan SourcePlan, outcome domain.SyncOutcome, now time.Time) (domain.Snapshot, error) {
	if !outcome.Succeeded {
		if outcome.Err != nil {
			return domain.Snapshot{}, outcome.Err
		}
		return domain.Snapshot{}, fmt.Errorf("%w: source %s did not succeed", domain.ErrFetchFailed, outcome.Source)
	}
	if w.store == nil {
		return domain.Snapshot{}, fmt.Errorf("%w: snapshot store is not configured", domain.ErrPersistence)
	}

	records := append([]domain.EngagementRecord(nil), outcome.Records...)
	if plan.RetainMissing {
		records = w.retain(ctx, outcome.Kind, records)
	}
	SortRecords(records)

	snapshot := domain.Snapshot{
		Kind:        outcome.Kind,
		GeneratedAt: now.UTC(),
		NextUpdate:  now.UTC().Add(plan.MinInterval),
		SourceLabel: outcome.Label,
		Records:     records,
	}

	if err := w.store.Save(ctx, snapshot); err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return domain.Snapshot{}, err
	}

	if w.history != nil {
		if err := w.history.SaveSnapshot(ctx, snapshot); err != nil {
			w.logger.Warn("history insert failed", "source", outcome.Source, "error", err)
		}
	}
	return snapshot, nil
}

// retain appends records of the committed snapshot that are absent from the new fetch.
func (w *Writer) retain(ctx context.Context, kind domain.SourceKind, records []domain.EngagementRecord) []domain.EngagementRecord {
	prior, err := w.store.Load(ctx, kind)
	if err != nil {
		w.logger.Warn("cannot load previous snapshot, nothing retained", "kind", kind, "error", err)
		return records
	}
	if prior == nil {
		return records
	}

	present := make(map[string]struct{}, len(records))
	for _, rec := range records {
		present[rec.Key()] = struct{}{}
	}
	for _, rec := range prior.Records {
		rec.Kind = kind
		if _, ok := present[rec.Key()]; ok {
			continue
		}
		present[rec.Key()] = struct{}{}
		records = append(records, rec)
	}
	return records
}

// SortRecords orders by publication date descending, undated last, then by id.
func SortRecords(records []domain.EngagementRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].PublishedAt, records[j].PublishedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return records[i].ExternalID < records[j].ExternalID
	})
}
