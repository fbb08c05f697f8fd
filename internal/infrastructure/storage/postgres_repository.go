package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/ports"
)

const historyTable = "engagement_history"

const historySchema = `CREATE TABLE IF NOT EXISTS engagement_history (
    kind         TEXT        NOT NULL,
    external_id  TEXT        NOT NULL,
    generated_at TIMESTAMPTZ NOT NULL,
    source_label TEXT        NOT NULL,
    title        TEXT        NOT NULL DEFAULT '',
    url          TEXT        NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ,
    categories   TEXT[]      NOT NULL DEFAULT '{}',
    metrics      JSONB       NOT NULL,
    estimated    BOOLEAN     NOT NULL DEFAULT FALSE,
    degraded     BOOLEAN     NOT NULL DEFAULT FALSE,
    PRIMARY KEY (kind, external_id, generated_at)
)`

// PostgresRepository appends every committed snapshot to a history table.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.HistoryRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the history table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, historySchema); err != nil {
		return fmt.Errorf("create history table: %w", err)
	}
	return nil
}

// SaveSnapshot inserts one row per record. Re-saving the same snapshot is a no-op.
func (r *PostgresRepository) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if r.db == nil || len(snapshot.Records) == 0 {
		return nil
	}

	query, args, err := buildHistoryInsert(snapshot)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func buildHistoryInsert(snapshot domain.Snapshot) (string, []interface{}, error) {
	insert := sq.Insert(historyTable).
		Columns(
			"kind", "external_id", "generated_at", "source_label",
			"title", "url", "published_at", "categories",
			"metrics", "estimated", "degraded",
		).
		Suffix("ON CONFLICT (kind, external_id, generated_at) DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	for _, rec := range snapshot.Records {
		metricsJSON, err := json.Marshal(metrics(rec.Metrics))
		if err != nil {
			return "", nil, fmt.Errorf("encode metrics of %s: %w", rec.ExternalID, err)
		}

		title := rec.Title
		if title == "" {
			title = rec.Text
		}

		insert = insert.Values(
			string(snapshot.Kind),
			rec.ExternalID,
			snapshot.GeneratedAt.UTC(),
			snapshot.SourceLabel,
			title,
			rec.URL,
			rec.PublishedAt,
			pq.StringArray(nonNil(rec.Categories)),
			string(metricsJSON),
			rec.Estimated,
			rec.Degraded,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build history insert: %w", err)
	}
	return query, args, nil
}
