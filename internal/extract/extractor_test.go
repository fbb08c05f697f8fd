package extract

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"EngagementSync/internal/domain"
)

var fetchedAt = time.Date(2025, time.March, 2, 10, 0, 0, 0, time.UTC)

func TestExtractArticlePayload(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindArticle)
	payload := `{
		"id": "a1b2c3",
		"title": "Tracking vehicles with YOLO",
		"url": "https://medium.com/@someone/tracking-a1b2c3",
		"published_at": "2024-11-05 08:30:00",
		"subtitle": "A practical guide",
		"tags": ["computer-vision", "yolo"],
		"claps": 120,
		"responses_count": 4
	}`

	rec, err := ex.Extract(domain.Candidate{Ref: "a1b2c3", Payload: []byte(payload)}, fetchedAt)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	published := time.Date(2024, time.November, 5, 8, 30, 0, 0, time.UTC)
	want := domain.EngagementRecord{
		Kind:        domain.KindArticle,
		ExternalID:  "a1b2c3",
		Title:       "Tracking vehicles with YOLO",
		URL:         "https://medium.com/@someone/tracking-a1b2c3",
		Description: "A practical guide",
		Categories:  []string{"computer-vision", "yolo"},
		PublishedAt: &published,
		Metrics: map[string]int64{
			domain.MetricClaps:     120,
			domain.MetricResponses: 4,
			domain.MetricViews:     640,
		},
		FetchedAt:        fetchedAt,
		Estimated:        true,
		EstimatedMetrics: []string{domain.MetricViews},
	}

	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("unexpected record (-want +got):\n%s", diff)
	}
}

func TestExtractEstimatesResponsesFromClaps(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindArticle)
	rec, err := ex.Extract(domain.Candidate{Payload: []byte(`{"id":"x","claps":20,"views":300}`)}, fetchedAt)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if !rec.Estimated {
		t.Fatalf("expected estimated record")
	}
	if got := rec.Metrics[domain.MetricResponses]; got != 2 {
		t.Fatalf("expected responses=2, got %d", got)
	}
	if got := rec.Metrics[domain.MetricViews]; got != 300 {
		t.Fatalf("observed views must win, got %d", got)
	}
	if diff := cmp.Diff([]string{domain.MetricResponses}, rec.EstimatedMetrics); diff != "" {
		t.Fatalf("unexpected estimated metrics:\n%s", diff)
	}
}

func TestExtractExplicitZeroWins(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindArticle)
	rec, err := ex.Extract(domain.Candidate{Payload: []byte(`{"id":"z","claps":0,"engagement":{"claps":99},"responses_count":0,"views":0}`)}, fetchedAt)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if rec.Metrics[domain.MetricClaps] != 0 {
		t.Fatalf("explicit zero claps must win over the fallback field, got %d", rec.Metrics[domain.MetricClaps])
	}
	if rec.Estimated {
		t.Fatalf("fully observed record must not be estimated")
	}
}

func TestExtractMissingClapsIsEstimated(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindArticle)
	rec, err := ex.Extract(domain.Candidate{Payload: []byte(`{"id":"m","responses_count":3,"views":50}`)}, fetchedAt)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if !rec.Estimated || rec.Degraded {
		t.Fatalf("expected estimated, non-degraded record: %+v", rec)
	}
	if rec.Metrics[domain.MetricClaps] != 0 {
		t.Fatalf("expected estimated claps=0, got %d", rec.Metrics[domain.MetricClaps])
	}
	if rec.Metrics[domain.MetricViews] != 50 || rec.Metrics[domain.MetricResponses] != 3 {
		t.Fatalf("observed metrics must be kept: %v", rec.Metrics)
	}
}

func TestExtractArticleFromContent(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<meta property="og:title" content="Edge AI on Jetson">
		<meta property="og:url" content="https://medium.com/p/edge-ai">
		<meta property="article:published_time" content="2025-01-10T12:00:00Z">
		<meta property="article:tag" content="Edge AI">
		<meta property="article:tag" content="Jetson">
	</head><body>
		<div data-testid="claps"></div>
		<span class="pw-claps-count">1.2K</span>
		<a data-action="scroll-to-responses"><span>17</span></a>
		<p>Read by 3,400 views so far</p>
	</body></html>`

	ex := NewDefaultExtractor(domain.KindArticle)
	rec, err := ex.Extract(domain.Candidate{Ref: "https://medium.com/p/edge-ai", Content: html}, fetchedAt)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if rec.Title != "Edge AI on Jetson" {
		t.Fatalf("unexpected title: %q", rec.Title)
	}
	if rec.ExternalID != "https://medium.com/p/edge-ai" {
		t.Fatalf("unexpected id: %q", rec.ExternalID)
	}
	want := map[string]int64{
		domain.MetricClaps:     1200,
		domain.MetricResponses: 17,
		domain.MetricViews:     3400,
	}
	if diff := cmp.Diff(want, rec.Metrics); diff != "" {
		t.Fatalf("unexpected metrics (-want +got):\n%s", diff)
	}
	if rec.Estimated {
		t.Fatalf("record read from content should be observed")
	}
	if diff := cmp.Diff([]string{"Edge AI", "Jetson"}, rec.Categories); diff != "" {
		t.Fatalf("unexpected categories:\n%s", diff)
	}
	if rec.PublishedAt == nil || !rec.PublishedAt.Equal(time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published date: %v", rec.PublishedAt)
	}
}

func TestExtractPostPayload(t *testing.T) {
	t.Parallel()

	payload := `{
		"urn": "urn:li:activity:7200000000000000000",
		"postText": "Real-time traffic analysis with CCTV",
		"postLink": "https://www.linkedin.com/feed/update/urn:li:activity:7200000000000000000",
		"postedAt": "2025-02-01T09:00:00Z",
		"actor": {"actorName": "Jane Doe", "actorDescription": "AI Engineer"},
		"socialCount": {"numLikes": 45, "numComments": 3}
	}`

	ex := NewDefaultExtractor(domain.KindPost)
	rec, err := ex.Extract(domain.Candidate{Payload: []byte(payload)}, fetchedAt)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if rec.ExternalID != "7200000000000000000" {
		t.Fatalf("urn prefix should be stripped, got %q", rec.ExternalID)
	}
	if rec.Author != (domain.Author{Name: "Jane Doe", Headline: "AI Engineer"}) {
		t.Fatalf("unexpected author: %+v", rec.Author)
	}
	if got := rec.Metrics[domain.MetricShares]; got != 2 {
		t.Fatalf("expected shares=max(1,45/20)=2, got %d", got)
	}
	if !rec.Estimated {
		t.Fatalf("expected estimated record")
	}
}

func TestExtractPostSharesFloor(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindPost)
	rec, _ := ex.Extract(domain.Candidate{Payload: []byte(`{"id":"p","socialCount":{"numLikes":5,"numComments":0}}`)}, fetchedAt)
	if got := rec.Metrics[domain.MetricShares]; got != 1 {
		t.Fatalf("expected shares floor of 1, got %d", got)
	}
}

func TestExtractInvalidPayloadDegrades(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindArticle)
	c := domain.Candidate{
		Ref:     "abc",
		Payload: []byte(`{"id": "abc", "claps": `),
		Hint:    domain.CandidateHint{Title: "Known title"},
	}

	rec, err := ex.Extract(c, fetchedAt)
	if !errors.Is(err, domain.ErrExtractionDegraded) {
		t.Fatalf("expected ErrExtractionDegraded, got %v", err)
	}
	if !rec.Degraded || !rec.Estimated {
		t.Fatalf("placeholder must be degraded and estimated: %+v", rec)
	}
	if rec.ExternalID != "abc" || rec.Title != "Known title" {
		t.Fatalf("placeholder must keep known identity: %+v", rec)
	}
	want := map[string]int64{domain.MetricClaps: 15, domain.MetricResponses: 2, domain.MetricViews: 100}
	if diff := cmp.Diff(want, rec.Metrics); diff != "" {
		t.Fatalf("unexpected placeholder metrics:\n%s", diff)
	}
	if rec.PublishedAt != nil {
		t.Fatalf("placeholder must not invent a publication date")
	}
}

func TestExtractEmptyCandidateDegrades(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindPost)
	rec, err := ex.Extract(domain.Candidate{Ref: "urn:li:activity:1"}, fetchedAt)
	if !errors.Is(err, domain.ErrExtractionDegraded) {
		t.Fatalf("expected ErrExtractionDegraded, got %v", err)
	}
	if rec.ExternalID != "1" {
		t.Fatalf("unexpected placeholder id %q", rec.ExternalID)
	}
	if rec.Metrics[domain.MetricLikes] != 43 {
		t.Fatalf("unexpected placeholder metrics: %v", rec.Metrics)
	}
}

func TestExtractUnknownDateStaysNil(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindPost)
	rec, err := ex.Extract(domain.Candidate{Payload: []byte(`{"id":"p","postedAt":"recently","socialCount":{"numLikes":1,"numComments":1,"numShares":1}}`)}, fetchedAt)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if rec.PublishedAt != nil {
		t.Fatalf("relative date must not be invented, got %v", rec.PublishedAt)
	}
}

func TestExtractDescriptionIsSummarized(t *testing.T) {
	t.Parallel()

	long := "<p>" + strings.Repeat("word ", 80) + "</p>"
	ex := NewDefaultExtractor(domain.KindArticle)
	rec, _ := ex.Extract(domain.Candidate{Payload: []byte(`{"id":"d","claps":1,"responses_count":1,"views":1}`), Hint: domain.CandidateHint{Description: long}}, fetchedAt)

	if strings.Contains(rec.Description, "<") {
		t.Fatalf("html should be stripped: %q", rec.Description)
	}
	if !strings.HasSuffix(rec.Description, "...") {
		t.Fatalf("long description should be truncated: %q", rec.Description)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindArticle)
	c := domain.Candidate{Content: "<p>no identity at all, 12 views</p>"}
	first, _ := ex.Extract(c, fetchedAt)
	second, _ := ex.Extract(c, fetchedAt)
	if first.ExternalID == "" || first.ExternalID != second.ExternalID {
		t.Fatalf("fingerprint ids must be stable: %q vs %q", first.ExternalID, second.ExternalID)
	}
}

func TestNewExtractorRejectsBadConfig(t *testing.T) {
	t.Parallel()

	fields := DefaultFieldMap(domain.KindArticle)
	fields.Metrics = append(fields.Metrics, MetricSpec{Name: "reads", Strategies: []Strategy{Pattern("([")}})
	if _, err := NewExtractor(domain.KindArticle, fields, DefaultPolicy(domain.KindArticle)); err == nil {
		t.Fatalf("expected invalid pattern error")
	}

	policy := DefaultPolicy(domain.KindArticle)
	policy.Rules = append(policy.Rules, EstimateRule{Metric: "reads", Divisor: -1})
	if _, err := NewExtractor(domain.KindArticle, DefaultFieldMap(domain.KindArticle), policy); err == nil {
		t.Fatalf("expected invalid policy error")
	}

	if _, err := NewExtractor(domain.KindArticle, FieldMap{}, Policy{}); err == nil {
		t.Fatalf("expected empty field map error")
	}
}

func TestEstimateRuleApply(t *testing.T) {
	t.Parallel()

	views := EstimateRule{Metric: "views", From: "claps", Multiplier: 4.5, Base: 100}
	if got := views.apply(3); got != 113 {
		t.Fatalf("expected floor(3*4.5)+100=113, got %d", got)
	}
	responses := EstimateRule{Metric: "responses", From: "claps", Divisor: 10, Min: 1}
	if got := responses.apply(5); got != 1 {
		t.Fatalf("expected max(1, 0)=1, got %d", got)
	}
	constant := EstimateRule{Metric: "claps", Base: 7}
	if got := constant.apply(999); got != 7 {
		t.Fatalf("constant rule must ignore input, got %d", got)
	}
}

func TestExtractHugeJSONCountsSaturate(t *testing.T) {
	t.Parallel()

	ex := NewDefaultExtractor(domain.KindArticle)
	for _, raw := range []string{"1e30", "99999999999999999999"} {
		rec, err := ex.Extract(domain.Candidate{Payload: []byte(`{"id":"big","claps":` + raw + `,"responses_count":1,"views":1}`)}, fetchedAt)
		if err != nil {
			t.Fatalf("%s: Extract returned error: %v", raw, err)
		}
		if got := rec.Metrics[domain.MetricClaps]; got != math.MaxInt64 {
			t.Fatalf("%s: expected claps capped at MaxInt64, got %d", raw, got)
		}
	}
}

func TestExtractWithoutObservedMetricsDegrades(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind    domain.SourceKind
		payload string
		want    map[string]int64
	}{
		{
			kind:    domain.KindArticle,
			payload: `{"id":"a1","title":"Renamed","clapCount":120}`,
			want:    map[string]int64{domain.MetricClaps: 15, domain.MetricResponses: 2, domain.MetricViews: 100},
		},
		{
			kind:    domain.KindPost,
			payload: `{"urn":"urn:li:activity:9","postText":"no counts"}`,
			want:    map[string]int64{domain.MetricLikes: 43, domain.MetricComments: 5, domain.MetricShares: 2},
		},
	}

	for _, tc := range cases {
		rec, err := NewDefaultExtractor(tc.kind).Extract(domain.Candidate{Payload: []byte(tc.payload)}, fetchedAt)
		if !errors.Is(err, domain.ErrExtractionDegraded) {
			t.Fatalf("%s: expected ErrExtractionDegraded, got %v", tc.kind, err)
		}
		if !rec.Degraded || !rec.Estimated {
			t.Fatalf("%s: record must be degraded and estimated: %+v", tc.kind, rec)
		}
		if diff := cmp.Diff(tc.want, rec.Metrics); diff != "" {
			t.Fatalf("%s: unexpected placeholder metrics (-want +got):\n%s", tc.kind, diff)
		}
		if rec.ExternalID == "" || (rec.Title == "" && rec.Text == "") {
			t.Fatalf("%s: degraded record must keep what was read: %+v", tc.kind, rec)
		}
	}
}
