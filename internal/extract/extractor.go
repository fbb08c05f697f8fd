// Package extract turns raw candidates into normalized engagement records.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"EngagementSync/internal/domain"
)

const maxDescriptionRunes = 200

// Extractor applies one source's field map and estimation policy.
type Extractor struct {
	kind     domain.SourceKind
	fields   FieldMap
	policy   Policy
	patterns map[string]*regexp.Regexp
}

// NewExtractor validates the field map and policy and compiles pattern strategies.
func NewExtractor(kind domain.SourceKind, fields FieldMap, policy Policy) (*Extractor, error) {
	if err := fields.validate(); err != nil {
		return nil, fmt.Errorf("%s field map: %w", kind, err)
	}
	if err := policy.validate(); err != nil {
		return nil, fmt.Errorf("%s estimation policy: %w", kind, err)
	}

	patterns := make(map[string]*regexp.Regexp)
	for _, s := range fields.strategies() {
		if s.Kind != FromPattern {
			continue
		}
		if _, ok := patterns[s.Path]; ok {
			continue
		}
		re, err := regexp.Compile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("%s pattern %q: %w", kind, s.Path, err)
		}
		patterns[s.Path] = re
	}

	return &Extractor{kind: kind, fields: fields, policy: policy, patterns: patterns}, nil
}

// NewDefaultExtractor builds an extractor with the built-in map and policy of a kind.
func NewDefaultExtractor(kind domain.SourceKind) *Extractor {
	ex, err := NewExtractor(kind, DefaultFieldMap(kind), DefaultPolicy(kind))
	if err != nil {
		panic(fmt.Sprintf("default %s extractor: %v", kind, err))
	}
	return ex
}

// Kind reports the source kind the extractor produces.
func (e *Extractor) Kind() domain.SourceKind {
	return e.kind
}

// Extract always returns a usable record. When the candidate cannot be read, or
// none of its metrics is observed, the record is degraded and the error wraps
// domain.ErrExtractionDegraded.
func (e *Extractor) Extract(c domain.Candidate, fetchedAt time.Time) (rec domain.EngagementRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrExtractionDegraded, r)
			rec = e.Placeholder(c, fetchedAt)
		}
	}()

	rec, err = e.extract(c, fetchedAt)
	if err != nil && !rec.Degraded {
		return e.Placeholder(c, fetchedAt), err
	}
	return rec, err
}

// Placeholder builds the degraded record emitted for an unreadable candidate.
func (e *Extractor) Placeholder(c domain.Candidate, fetchedAt time.Time) domain.EngagementRecord {
	rec := domain.EngagementRecord{
		Kind:        e.kind,
		ExternalID:  e.stripPrefix(firstNonEmpty(c.Hint.ID, c.Ref, c.Hint.URL)),
		Title:       c.Hint.Title,
		URL:         c.Hint.URL,
		Description: c.Hint.Description,
		PublishedAt: c.Hint.PublishedAt,
		FetchedAt:   fetchedAt,
	}
	if rec.ExternalID == "" {
		rec.ExternalID = fingerprint(c)
	}
	if rec.URL == "" && looksLikeURL(c.Ref) {
		rec.URL = c.Ref
	}
	e.degrade(&rec)
	return rec
}

// degrade replaces every metric of rec with the placeholder policy.
func (e *Extractor) degrade(rec *domain.EngagementRecord) {
	rec.Metrics = make(map[string]int64, len(e.policy.Placeholder))
	rec.EstimatedMetrics = nil
	for name, v := range e.policy.Placeholder {
		rec.Metrics[name] = v
		rec.EstimatedMetrics = append(rec.EstimatedMetrics, name)
	}
	sort.Strings(rec.EstimatedMetrics)
	rec.Estimated = true
	rec.Degraded = true
}

func (e *Extractor) extract(c domain.Candidate, fetchedAt time.Time) (domain.EngagementRecord, error) {
	if len(c.Payload) == 0 && strings.TrimSpace(c.Content) == "" {
		return domain.EngagementRecord{}, fmt.Errorf("%w: candidate %q has no payload or content", domain.ErrExtractionDegraded, c.Ref)
	}

	doc, err := newDocument(c, e.patterns)
	if err != nil {
		return domain.EngagementRecord{}, err
	}

	rec := domain.EngagementRecord{
		Kind:      e.kind,
		FetchedAt: fetchedAt,
		Metrics:   make(map[string]int64, len(e.fields.Metrics)),
	}

	id, _ := doc.lookupText(e.fields.ID)
	rec.ExternalID = e.stripPrefix(firstNonEmpty(id, c.Hint.ID, c.Ref))
	rec.Title = firstNonEmpty(lookup(doc, e.fields.Title), c.Hint.Title)
	rec.Text = lookup(doc, e.fields.Text)
	rec.URL = firstNonEmpty(lookup(doc, e.fields.URL), c.Hint.URL)
	if rec.URL == "" && looksLikeURL(c.Ref) {
		rec.URL = c.Ref
	}
	rec.Description = summarize(firstNonEmpty(lookup(doc, e.fields.Description), c.Hint.Description))
	rec.Categories = doc.lookupList(e.fields.Categories)
	if len(rec.Categories) == 0 && len(c.Hint.Categories) > 0 {
		rec.Categories = append([]string(nil), c.Hint.Categories...)
	}
	rec.Author = domain.Author{
		Name:     lookup(doc, e.fields.AuthorName),
		Headline: lookup(doc, e.fields.AuthorHeadline),
	}

	if raw := lookup(doc, e.fields.PublishedAt); raw != "" {
		rec.PublishedAt = parseTime(raw)
	}
	if rec.PublishedAt == nil {
		rec.PublishedAt = c.Hint.PublishedAt
	}

	if rec.ExternalID == "" {
		rec.ExternalID = firstNonEmpty(rec.URL, fingerprint(c))
	}

	for _, metric := range e.fields.Metrics {
		if v, ok := doc.lookupCount(metric.Strategies); ok {
			rec.Metrics[metric.Name] = v
		}
	}
	if len(rec.Metrics) == 0 {
		e.degrade(&rec)
		return rec, fmt.Errorf("%w: candidate %q exposes none of the mapped metrics", domain.ErrExtractionDegraded, rec.ExternalID)
	}
	e.estimate(&rec)

	return rec, nil
}

// estimate fills metrics still unknown after every strategy was exhausted.
func (e *Extractor) estimate(rec *domain.EngagementRecord) {
	for _, rule := range e.policy.Rules {
		if _, known := rec.Metrics[rule.Metric]; known {
			continue
		}
		from := int64(0)
		if rule.From != "" {
			v, ok := rec.Metrics[rule.From]
			if !ok {
				continue
			}
			from = v
		}
		rec.Metrics[rule.Metric] = rule.apply(from)
		rec.EstimatedMetrics = append(rec.EstimatedMetrics, rule.Metric)
		rec.Estimated = true
	}
}

func (e *Extractor) stripPrefix(id string) string {
	if e.fields.IDPrefix == "" {
		return id
	}
	return strings.TrimPrefix(id, e.fields.IDPrefix)
}

func lookup(doc *document, strategies []Strategy) string {
	v, _ := doc.lookupText(strategies)
	return v
}

func parseTime(raw string) *time.Time {
	t, err := dateparse.ParseIn(strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// summarize reduces HTML to text and caps its length.
func summarize(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	s = collapseSpace(s)
	if utf8.RuneCountInString(s) <= maxDescriptionRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxDescriptionRunes])) + "..."
}

func fingerprint(c domain.Candidate) string {
	data := make([]byte, 0, len(c.Payload)+len(c.Content))
	data = append(data, c.Payload...)
	data = append(data, c.Content...)
	return uuid.NewSHA1(uuid.NameSpaceURL, data).String()
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
