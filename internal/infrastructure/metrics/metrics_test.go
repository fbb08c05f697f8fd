package metrics

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"EngagementSync/internal/domain"
)

func sampleReport() domain.CycleReport {
	return domain.CycleReport{
		ID:        "c1",
		StartedAt: time.Unix(1741586400, 0),
		Status:    domain.CycleDegraded,
		PerSource: []domain.SyncOutcome{
			{
				Source:    "medium",
				Succeeded: true,
				Duration:  2 * time.Second,
				Records: []domain.EngagementRecord{
					{ExternalID: "a"},
					{ExternalID: "b", Estimated: true},
					{ExternalID: "c", Estimated: true, Degraded: true},
				},
			},
			{Source: "linkedin", Err: domain.ErrFetchFailed, Duration: time.Second},
		},
	}
}

func TestObserveCycle(t *testing.T) {
	t.Parallel()

	c, err := NewCycleCollector()
	if err != nil {
		t.Fatalf("NewCycleCollector returned error: %v", err)
	}
	c.ObserveCycle(sampleReport())

	if got := testutil.ToFloat64(c.cycles.WithLabelValues("degraded")); got != 1 {
		t.Fatalf("cycles_total{degraded} = %v", got)
	}
	if got := testutil.ToFloat64(c.sourceSyncs.WithLabelValues("linkedin", "failed")); got != 1 {
		t.Fatalf("linkedin failed = %v", got)
	}
	if got := testutil.ToFloat64(c.records.WithLabelValues("medium", "observed")); got != 1 {
		t.Fatalf("observed records = %v", got)
	}
	if got := testutil.ToFloat64(c.records.WithLabelValues("medium", "estimated")); got != 1 {
		t.Fatalf("estimated records = %v", got)
	}
	if got := testutil.ToFloat64(c.records.WithLabelValues("medium", "degraded")); got != 1 {
		t.Fatalf("degraded records = %v", got)
	}
	if got := testutil.ToFloat64(c.lastSuccess.WithLabelValues("medium")); got != 1741586400 {
		t.Fatalf("last success = %v", got)
	}
	if got := testutil.CollectAndCount(c.lastSuccess); got != 1 {
		t.Fatalf("failed source must not get a success timestamp, series = %d", got)
	}
}

func TestHandlerAndTextfile(t *testing.T) {
	t.Parallel()

	c, err := NewCycleCollector()
	if err != nil {
		t.Fatalf("NewCycleCollector returned error: %v", err)
	}
	c.ObserveCycle(sampleReport())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `engagement_sync_cycles_total{status="degraded"} 1`) {
		t.Fatalf("unexpected exposition:\n%s", rec.Body.String())
	}

	path := filepath.Join(t.TempDir(), "engagement_sync.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile returned error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(raw), "engagement_sync_source_syncs_total") {
		t.Fatalf("textfile misses source counters:\n%s", raw)
	}
}
