package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// aggregation pipeline.
type Metrics struct {
	EventsFetched    *prometheus.CounterVec // labels: source
	SourceFailures   *prometheus.CounterVec // labels: source, kind={unreachable,unparseable}
	EventsDropped    prometheus.Counter     // unresolvable position hints
	EventsDuplicated prometheus.Counter
	RecordsPersisted prometheus.Counter
	ChunkErrors      prometheus.Counter
	PipelineRunning  prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
	RunDuration      prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadworks_etl",
			Name:      "events_fetched_total",
			Help:      "Raw events contributed by each source adapter.",
		}, []string{"source"}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadworks_etl",
			Name:      "source_failures_total",
			Help:      "Source fetches that degraded to an empty contribution.",
		}, []string{"source", "kind"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadworks_etl",
			Name:      "events_dropped_total",
			Help:      "Events dropped because their position hint could not be resolved.",
		}),
		EventsDuplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadworks_etl",
			Name:      "events_deduplicated_total",
			Help:      "Events suppressed as spatial duplicates of known points.",
		}),
		RecordsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadworks_etl",
			Name:      "records_persisted_total",
			Help:      "Canonical records committed to the store.",
		}),
		ChunkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadworks_etl",
			Name:      "chunk_errors_total",
			Help:      "Store chunk commits that failed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roadworks_etl",
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roadworks_etl",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "roadworks_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadworks_etl",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadworks_etl",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roadworks_etl",
			Name:      "geocode_api_duration_seconds",
			Help:      "Nominatim request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
	}
}

// NewMetrics creates the pipeline metrics and registers them with the
// default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsFetched,
		m.SourceFailures,
		m.EventsDropped,
		m.EventsDuplicated,
		m.RecordsPersisted,
		m.ChunkErrors,
		m.PipelineRunning,
		m.LastRunTimestamp,
		m.RunDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics left unregistered, avoiding
// "already registered" panics when constructed from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
