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

// SnapshotFileStore keeps one JSON snapshot file per source kind.
type SnapshotFileStore struct {
	paths map[domain.SourceKind]string
	write writeFunc
}

var _ ports.SnapshotStore = (*SnapshotFileStore)(nil)

// NewSnapshotFileStore maps every source kind to its canonical file.
func NewSnapshotFileStore(paths map[domain.SourceKind]string) *SnapshotFileStore {
	return &SnapshotFileStore{paths: paths, write: writeAll}
}

// Path returns the canonical file of a kind.
func (s *SnapshotFileStore) Path(kind domain.SourceKind) (string, bool) {
	p, ok := s.paths[kind]
	return p, ok
}

// Load reads the committed snapshot of a kind; a missing file yields (nil, nil).
func (s *SnapshotFileStore) Load(_ context.Context, kind domain.SourceKind) (*domain.Snapshot, error) {
	path, ok := s.paths[kind]
	if !ok {
		return nil, fmt.Errorf("no snapshot path for kind %s", kind)
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	snapshot, err := decodeSnapshot(kind, raw)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snapshot, nil
}

// Save atomically replaces the snapshot file of the snapshot's kind.
func (s *SnapshotFileStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	path, ok := s.paths[snapshot.Kind]
	if !ok {
		return fmt.Errorf("%w: no snapshot path for kind %s", domain.ErrPersistence, snapshot.Kind)
	}

	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", domain.ErrPersistence, err)
	}
	if err := replaceFile(path, data, s.write); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

type articleFile struct {
	LastUpdated string       `json:"lastUpdated"`
	NextUpdate  string       `json:"nextUpdate"`
	Source      string       `json:"source"`
	Articles    []articleDTO `json:"articles"`
}

type articleDTO struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Link             string           `json:"link"`
	PublishedDate    *string          `json:"publishedDate"`
	Description      string           `json:"description"`
	Categories       []string         `json:"categories"`
	Author           string           `json:"author"`
	Engagement       map[string]int64 `json:"engagement"`
	FetchedAt        string           `json:"fetchedAt,omitempty"`
	Estimated        bool             `json:"estimated"`
	EstimatedMetrics []string         `json:"estimatedMetrics,omitempty"`
	Degraded         bool             `json:"degraded,omitempty"`
}

type postFile struct {
	LastUpdated string    `json:"lastUpdated"`
	NextUpdate  string    `json:"nextUpdate"`
	Source      string    `json:"source"`
	Posts       []postDTO `json:"posts"`
	TotalPosts  int       `json:"total_posts"`
}

type postDTO struct {
	ID               string           `json:"id"`
	Text             string           `json:"text"`
	URL              string           `json:"url"`
	PublishedAt      *string          `json:"publishedAt"`
	Author           authorDTO        `json:"author"`
	Engagement       map[string]int64 `json:"engagement"`
	FetchedAt        string           `json:"fetchedAt,omitempty"`
	Estimated        bool             `json:"estimated"`
	EstimatedMetrics []string         `json:"estimatedMetrics,omitempty"`
	Degraded         bool             `json:"degraded,omitempty"`
}

type authorDTO struct {
	Name     string `json:"name"`
	Headline string `json:"headline"`
}

func encodeSnapshot(s domain.Snapshot) ([]byte, error) {
	var doc any
	switch s.Kind {
	case domain.KindArticle:
		articles := make([]articleDTO, 0, len(s.Records))
		for _, rec := range s.Records {
			articles = append(articles, articleDTO{
				ID:               rec.ExternalID,
				Title:            rec.Title,
				Link:             rec.URL,
				PublishedDate:    formatTimePtr(rec.PublishedAt),
				Description:      rec.Description,
				Categories:       nonNil(rec.Categories),
				Author:           rec.Author.Name,
				Engagement:       metrics(rec.Metrics),
				FetchedAt:        formatOptional(rec.FetchedAt),
				Estimated:        rec.Estimated,
				EstimatedMetrics: rec.EstimatedMetrics,
				Degraded:         rec.Degraded,
			})
		}
		doc = articleFile{
			LastUpdated: formatTime(s.GeneratedAt),
			NextUpdate:  formatTime(s.NextUpdate),
			Source:      s.SourceLabel,
			Articles:    articles,
		}
	case domain.KindPost:
		posts := make([]postDTO, 0, len(s.Records))
		for _, rec := range s.Records {
			posts = append(posts, postDTO{
				ID:               rec.ExternalID,
				Text:             rec.Text,
				URL:              rec.URL,
				PublishedAt:      formatTimePtr(rec.PublishedAt),
				Author:           authorDTO{Name: rec.Author.Name, Headline: rec.Author.Headline},
				Engagement:       metrics(rec.Metrics),
				FetchedAt:        formatOptional(rec.FetchedAt),
				Estimated:        rec.Estimated,
				EstimatedMetrics: rec.EstimatedMetrics,
				Degraded:         rec.Degraded,
			})
		}
		doc = postFile{
			LastUpdated: formatTime(s.GeneratedAt),
			NextUpdate:  formatTime(s.NextUpdate),
			Source:      s.SourceLabel,
			Posts:       posts,
			TotalPosts:  len(posts),
		}
	default:
		return nil, fmt.Errorf("unknown kind %q", s.Kind)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeSnapshot(kind domain.SourceKind, raw []byte) (*domain.Snapshot, error) {
	snapshot := &domain.Snapshot{Kind: kind}

	switch kind {
	case domain.KindArticle:
		var doc articleFile
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		fillHeader(snapshot, doc.LastUpdated, doc.NextUpdate, doc.Source)
		for _, a := range doc.Articles {
			snapshot.Records = append(snapshot.Records, domain.EngagementRecord{
				Kind:             kind,
				ExternalID:       a.ID,
				Title:            a.Title,
				URL:              a.Link,
				PublishedAt:      parseTimePtr(a.PublishedDate),
				Description:      a.Description,
				Categories:       a.Categories,
				Author:           domain.Author{Name: a.Author},
				Metrics:          metrics(a.Engagement),
				FetchedAt:        parseOptional(a.FetchedAt),
				Estimated:        a.Estimated,
				EstimatedMetrics: a.EstimatedMetrics,
				Degraded:         a.Degraded,
			})
		}
	case domain.KindPost:
		var doc postFile
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		fillHeader(snapshot, doc.LastUpdated, doc.NextUpdate, doc.Source)
		for _, p := range doc.Posts {
			snapshot.Records = append(snapshot.Records, domain.EngagementRecord{
				Kind:             kind,
				ExternalID:       p.ID,
				Text:             p.Text,
				URL:              p.URL,
				PublishedAt:      parseTimePtr(p.PublishedAt),
				Author:           domain.Author{Name: p.Author.Name, Headline: p.Author.Headline},
				Metrics:          metrics(p.Engagement),
				FetchedAt:        parseOptional(p.FetchedAt),
				Estimated:        p.Estimated,
				EstimatedMetrics: p.EstimatedMetrics,
				Degraded:         p.Degraded,
			})
		}
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return snapshot, nil
}

func fillHeader(s *domain.Snapshot, lastUpdated, nextUpdate, source string) {
	s.GeneratedAt = parseOptional(lastUpdated)
	s.NextUpdate = parseOptional(nextUpdate)
	s.SourceLabel = source
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatTime(t)
}

func parseOptional(raw string) time.Time {
	t, _ := parseTime(raw)
	return t
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// metrics copies a metric map and drops negative values.
func metrics(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		if v < 0 {
			v = 0
		}
		out[k] = v
	}
	return out
}
