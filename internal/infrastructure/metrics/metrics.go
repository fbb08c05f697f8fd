package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"EngagementSync/internal/domain"
	"EngagementSync/internal/ports"
)

const namespace = "engagement_sync"

// CycleCollector exposes Prometheus metrics for synchronization cycles.
type CycleCollector struct {
	registry     *prometheus.Registry
	cycles       *prometheus.CounterVec
	sourceSyncs  *prometheus.CounterVec
	records      *prometheus.GaugeVec
	lastSuccess  *prometheus.GaugeVec
	syncDuration *prometheus.HistogramVec
}

var _ ports.CycleObserver = (*CycleCollector)(nil)

// NewCycleCollector constructs a collector on its own registry.
func NewCycleCollector() (*CycleCollector, error) {
	registry := prometheus.NewRegistry()

	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Completed cycles by overall status.",
	}, []string{"status"})

	sourceSyncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "syncs_total",
		Help:      "Per-source outcomes (succeeded, failed, skipped).",
	}, []string{"source", "outcome"})

	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "records",
		Help:      "Records of the last synchronized outcome by quality (observed, estimated, degraded).",
	}, []string{"source", "quality"})

	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last cycle that committed fresh data.",
	}, []string{"source"})

	syncDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "sync_duration_seconds",
		Help:      "Time spent fetching and extracting a source.",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 180, 300},
	}, []string{"source"})

	for _, c := range []prometheus.Collector{cycles, sourceSyncs, records, lastSuccess, syncDuration} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &CycleCollector{
		registry:     registry,
		cycles:       cycles,
		sourceSyncs:  sourceSyncs,
		records:      records,
		lastSuccess:  lastSuccess,
		syncDuration: syncDuration,
	}, nil
}

// ObserveCycle records one finished cycle.
func (c *CycleCollector) ObserveCycle(report domain.CycleReport) {
	c.cycles.WithLabelValues(string(report.Status)).Inc()

	for _, o := range report.PerSource {
		c.sourceSyncs.WithLabelValues(o.Source, o.State()).Inc()
		if o.Skipped {
			continue
		}

		c.syncDuration.WithLabelValues(o.Source).Observe(o.Duration.Seconds())
		if !o.Succeeded {
			continue
		}

		c.records.WithLabelValues(o.Source, "observed").Set(float64(o.ObservedCount() - observedEstimated(o)))
		c.records.WithLabelValues(o.Source, "estimated").Set(float64(observedEstimated(o)))
		c.records.WithLabelValues(o.Source, "degraded").Set(float64(o.DegradedCount()))
		if o.Fresh() {
			c.lastSuccess.WithLabelValues(o.Source).Set(float64(report.StartedAt.Unix()))
		}
	}
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *CycleCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node_exporter textfile collector.
func (c *CycleCollector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Registry exposes the underlying registry.
func (c *CycleCollector) Registry() *prometheus.Registry {
	return c.registry
}

// observedEstimated counts non-placeholder records with inferred metrics.
func observedEstimated(o domain.SyncOutcome) int {
	count := 0
	for _, rec := range o.Records {
		if rec.Estimated && !rec.Degraded {
			count++
		}
	}
	return count
}
