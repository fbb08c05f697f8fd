package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind distinguishes the two content shapes the pipeline tracks.
type SourceKind string

const (
	KindArticle SourceKind = "article"
	KindPost    SourceKind = "post"
)

// ParseSourceKind accepts the config spelling of a kind.
func ParseSourceKind(value string) (SourceKind, error) {
	switch SourceKind(strings.ToLower(strings.TrimSpace(value))) {
	case KindArticle:
		return KindArticle, nil
	case KindPost:
		return KindPost, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", value)
	}
}

// Metric names shared by extractors, estimation rules and snapshot files.
const (
	MetricClaps     = "claps"
	MetricResponses = "responses"
	MetricViews     = "views"
	MetricLikes     = "likes"
	MetricComments  = "comments"
	MetricShares    = "shares"
)

// Author identifies who published a piece of content.
type Author struct {
	Name     string
	Headline string
}

// EngagementRecord is the normalized measurement of audience reaction to one piece of content.
type EngagementRecord struct {
	Kind        SourceKind
	ExternalID  string
	Title       string
	Text        string
	URL         string
	Description string
	Categories  []string
	Author      Author
	// PublishedAt stays nil when the platform did not expose a usable date.
	PublishedAt *time.Time
	Metrics     map[string]int64
	FetchedAt   time.Time
	// Estimated is set when at least one metric came from an estimation rule.
	Estimated        bool
	EstimatedMetrics []string
	// Degraded marks a placeholder emitted for a candidate that could not be read at all.
	Degraded bool
}

// Key is the merge key of a record inside a snapshot.
func (r EngagementRecord) Key() string {
	return string(r.Kind) + ":" + r.ExternalID
}

// Metric returns a metric value and whether it is known.
func (r EngagementRecord) Metric(name string) (int64, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}

// Candidate is one raw, pre-normalization item returned by a source fetch.
type Candidate struct {
	// Ref is the identity used for a follow-up detail request (article id, permalink).
	Ref string
	// Payload holds a raw JSON document from an API.
	Payload []byte
	// Content holds a scraped HTML blob.
	Content string
	Hint    CandidateHint
}

// CandidateHint carries identity fields already known before extraction (feed metadata).
type CandidateHint struct {
	ID          string
	Title       string
	URL         string
	Description string
	Categories  []string
	PublishedAt *time.Time
}
