package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"EngagementSync/internal/domain"
)

func sampleArticleSnapshot(now time.Time) domain.Snapshot {
	published := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		Kind:        domain.KindArticle,
		GeneratedAt: now,
		NextUpdate:  now.Add(144 * time.Hour),
		SourceLabel: "medium-api",
		Records: []domain.EngagementRecord{
			{
				Kind:        domain.KindArticle,
				ExternalID:  "a1",
				Title:       "Tracking Objects",
				URL:         "https://medium.com/p/a1",
				PublishedAt: &published,
				Description: "Edge inference.",
				Categories:  []string{"ai"},
				Author:      domain.Author{Name: "Jane Doe"},
				Metrics:     map[string]int64{"claps": 120, "responses": 4, "views": 640},
				FetchedAt:   now,
				Estimated:   true,
				EstimatedMetrics: []string{
					"views",
				},
			},
			{
				Kind:       domain.KindArticle,
				ExternalID: "a2",
				Title:      "Undated",
				Metrics:    map[string]int64{"claps": 15, "responses": 2, "views": 100},
				FetchedAt:  now,
				Estimated:  true,
				Degraded:   true,
			},
		},
	}
}

func TestSnapshotFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	store := NewSnapshotFileStore(map[domain.SourceKind]string{
		domain.KindArticle: filepath.Join(dir, "data", "medium-articles.json"),
	})

	loaded, err := store.Load(context.Background(), domain.KindArticle)
	if err != nil || loaded != nil {
		t.Fatalf("missing file must load as nil, got %+v %v", loaded, err)
	}

	snapshot := sampleArticleSnapshot(now)
	if err := store.Save(context.Background(), snapshot); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err = store.Load(context.Background(), domain.KindArticle)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	snapshot.Records[1].Categories = []string{}
	if diff := cmp.Diff(snapshot, *loaded); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotFileStoreArticleShape(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "medium-articles.json")
	store := NewSnapshotFileStore(map[domain.SourceKind]string{domain.KindArticle: path})
	if err := store.Save(context.Background(), sampleArticleSnapshot(time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	doc := gjson.ParseBytes(raw)
	if doc.Get("lastUpdated").String() != "2025-03-10T06:00:00Z" || doc.Get("source").String() != "medium-api" {
		t.Fatalf("unexpected header: %s", raw)
	}
	if doc.Get("articles.0.engagement.views").Int() != 640 || doc.Get("articles.0.link").String() == "" {
		t.Fatalf("unexpected first article: %s", doc.Get("articles.0").Raw)
	}
	if doc.Get("articles.1.publishedDate").Type != gjson.Null {
		t.Fatalf("unknown date must be null, got %s", doc.Get("articles.1.publishedDate").Raw)
	}
	if doc.Get("articles.1.categories").Raw != "[]" {
		t.Fatalf("categories must never be null, got %s", doc.Get("articles.1.categories").Raw)
	}
}

func TestSnapshotFileStorePostShape(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "linkedin-posts.json")
	store := NewSnapshotFileStore(map[domain.SourceKind]string{domain.KindPost: path})
	now := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

	err := store.Save(context.Background(), domain.Snapshot{
		Kind:        domain.KindPost,
		GeneratedAt: now,
		NextUpdate:  now.Add(time.Hour),
		SourceLabel: "linkedin-api",
		Records: []domain.EngagementRecord{{
			Kind:       domain.KindPost,
			ExternalID: "7001",
			Text:       "Hello",
			Author:     domain.Author{Name: "Jane Doe", Headline: "Engineer"},
			Metrics:    map[string]int64{"likes": 50, "comments": 3, "shares": 2},
		}},
	})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	doc := gjson.ParseBytes(raw)
	if doc.Get("total_posts").Int() != 1 || doc.Get("posts.0.author.headline").String() != "Engineer" {
		t.Fatalf("unexpected post file: %s", raw)
	}
}

func TestSnapshotFileStoreInterruptedWriteKeepsPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "medium-articles.json")
	store := NewSnapshotFileStore(map[domain.SourceKind]string{domain.KindArticle: path})
	now := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

	if err := store.Save(context.Background(), sampleArticleSnapshot(now)); err != nil {
		t.Fatalf("initial Save returned error: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	store.write = func(f *os.File, data []byte) error {
		if _, err := f.Write(data[:len(data)/2]); err != nil {
			return err
		}
		return errors.New("disk full")
	}

	err = store.Save(context.Background(), sampleArticleSnapshot(now.Add(time.Hour)))
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot after failure: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("previous snapshot was modified")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "medium-articles.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("pending file left behind: %v", names)
	}
}

func TestSnapshotFileStoreLegacyDates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "medium-articles.json")
	legacy := `{"lastUpdated":"2025-01-05T09:30:00.123456","nextUpdate":"2025-01-11T09:30:00.123456","source":"medium-api-rate-limited",
	"articles":[{"title":"Old","link":"https://medium.com/p/x","publishedDate":"2024-12-01 08:00:00","categories":["ai"],"author":"Jane Doe","engagement":{"claps":12,"responses":1,"views":154}}]}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	store := NewSnapshotFileStore(map[domain.SourceKind]string{domain.KindArticle: path})
	snapshot, err := store.Load(context.Background(), domain.KindArticle)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if snapshot.GeneratedAt.IsZero() || snapshot.SourceLabel != "medium-api-rate-limited" {
		t.Fatalf("unexpected header %+v", snapshot)
	}
	rec := snapshot.Records[0]
	want := time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)
	if rec.PublishedAt == nil || !rec.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published date %v", rec.PublishedAt)
	}
	if rec.Metrics["views"] != 154 {
		t.Fatalf("unexpected metrics %v", rec.Metrics)
	}
}
