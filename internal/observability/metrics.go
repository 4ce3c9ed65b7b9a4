package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the ingestion pipeline.
type Metrics struct {
	RefreshRuns          *prometheus.CounterVec // label: outcome={succeeded,failed,rejected}
	ProfilesFetched      prometheus.Counter
	FetchErrors          prometheus.Counter
	ParseErrors          prometheus.Counter
	MeasurementsIngested prometheus.Counter
	MeasurementsDropped  prometheus.Counter // readings rejected by QC gating
	RefreshRunning       prometheus.Gauge
	RefreshDuration      prometheus.Histogram
	FilesCleaned         prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RefreshRuns,
		m.ProfilesFetched,
		m.FetchErrors,
		m.ParseErrors,
		m.MeasurementsIngested,
		m.MeasurementsDropped,
		m.RefreshRunning,
		m.RefreshDuration,
		m.FilesCleaned,
	)
	return m
}

// NewMetricsForTesting creates Metrics without touching the default
// registry, so parallel tests do not panic with duplicate registration.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "argo_ingest",
			Name:      "refresh_runs_total",
			Help:      "Refresh runs by outcome.",
		}, []string{"outcome"}),
		ProfilesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "argo_ingest",
			Name:      "profiles_fetched_total",
			Help:      "Profile files downloaded or reused from disk.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "argo_ingest",
			Name:      "fetch_errors_total",
			Help:      "Profile downloads that failed permanently.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "argo_ingest",
			Name:      "parse_errors_total",
			Help:      "Profile files that could not be decoded.",
		}),
		MeasurementsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "argo_ingest",
			Name:      "measurements_ingested_total",
			Help:      "Measurements written to the store.",
		}),
		MeasurementsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "argo_ingest",
			Name:      "measurements_dropped_total",
			Help:      "Readings discarded by quality-control gating.",
		}),
		RefreshRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "argo_ingest",
			Name:      "refresh_running",
			Help:      "1 while a refresh run is in flight.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "argo_ingest",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete refresh run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		FilesCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "argo_ingest",
			Name:      "files_cleaned_total",
			Help:      "Downloaded files removed by retention cleanup.",
		}),
	}
}
