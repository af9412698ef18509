package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for collection runs.
type Metrics struct {
	Queries           *prometheus.CounterVec // labels: region, outcome={ok,empty,decode_fault,transport_fault}
	EventsNormalized  prometheus.Counter
	DuplicatesDropped prometheus.Counter
	MissingID         prometheus.Counter
	DecodeFaults      *prometheus.CounterVec   // labels: listing={activations,quickviews,documents}
	Enrichments       *prometheus.CounterVec   // labels: outcome={found,empty,failed,cached}
	FetchDuration     *prometheus.HistogramVec // labels: endpoint
	FallbackUsed      *prometheus.CounterVec   // labels: kind={activations,images,documents}
	Downloads         *prometheus.CounterVec   // labels: kind={image,report}, outcome={ok,failed,too_small}
	SinkErrors        *prometheus.CounterVec   // labels: sink={kafka,sqlite,s3}
	PipelineRunning   prometheus.Gauge
	LastSuccess       prometheus.Gauge
	RunDuration       prometheus.Histogram
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      help("Activation listing queries by region and outcome."),
		}, []string{"region", "outcome"}),
		EventsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_normalized_total",
			Help:      help("Activations normalized from listing responses."),
		}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_dropped_total",
			Help:      help("Activations discarded because their ID was already collected."),
		}),
		MissingID: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_missing_id_total",
			Help:      help("Activations dropped for lacking an activation ID."),
		}),
		DecodeFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_faults_total",
			Help:      help("Extracted fragments that failed to decode, by listing."),
		}, []string{"listing"}),
		Enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      help("Detail page enrichments by outcome."),
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      help("Upstream request duration including retries, by endpoint."),
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		FallbackUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_used_total",
			Help:      help("Runs that substituted built-in placeholder records, by kind."),
		}, []string{"kind"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      help("Media downloads by kind and outcome."),
		}, []string{"kind", "outcome"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      help("Failed writes to optional sinks."),
		}, []string{"sink"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while a collection run is in progress."),
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      help("Unix time of the last collection run that wrote its snapshot."),
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      help("Duration of a complete collection run."),
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Queries,
		m.EventsNormalized,
		m.DuplicatesDropped,
		m.MissingID,
		m.DecodeFaults,
		m.Enrichments,
		m.FetchDuration,
		m.FallbackUsed,
		m.Downloads,
		m.SinkErrors,
		m.PipelineRunning,
		m.LastSuccess,
		m.RunDuration,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics(false)
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
