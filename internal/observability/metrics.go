package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "casemap"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// backfill walk, the feed client, and the snapshot publisher.
type Metrics struct {
	SnapshotsStored    prometheus.Counter
	SnapshotsReplaced  prometheus.Counter
	SnapshotsUnchanged prometheus.Counter
	ParseErrors        prometheus.Counter
	UnresolvedFeatures prometheus.Counter
	DatesSkipped       prometheus.Counter
	BackfillRunning    prometheus.Gauge
	TimelineDates      prometheus.Gauge

	// Feed metrics.
	FetchRequests *prometheus.CounterVec   // labels: kind={latest,slice,locations,countries,overlay,headline}, outcome={success,not_found,error}
	FetchDuration *prometheus.HistogramVec // labels: kind
	FeedCache     *prometheus.CounterVec   // labels: result={hit,miss}

	SnapshotsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		SnapshotsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_stored_total",
			Help:      "Total day snapshots written to the store.",
		}),
		SnapshotsReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_replaced_total",
			Help:      "Total day snapshots that replaced an existing date.",
		}),
		SnapshotsUnchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_unchanged_total",
			Help:      "Total re-ingested day snapshots identical to the stored one.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total payloads rejected at the ingestion boundary.",
		}),
		UnresolvedFeatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_features_total",
			Help:      "Total features dropped because their location did not resolve.",
		}),
		DatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_skipped_total",
			Help:      "Total dates the backfill walk skipped after a fetch or parse failure.",
		}),
		BackfillRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backfill_running",
			Help:      "1 while a backfill walk is fetching, 0 otherwise.",
		}),
		TimelineDates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timeline_dates",
			Help:      "Number of dates with a stored snapshot.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Feed requests by document kind and outcome.",
		}, []string{"kind", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Feed request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		FeedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_cache_total",
			Help:      "Historical slice cache lookups by result.",
		}, []string{"result"}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Day snapshots published to Kafka by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SnapshotsStored,
		m.SnapshotsReplaced,
		m.SnapshotsUnchanged,
		m.ParseErrors,
		m.UnresolvedFeatures,
		m.DatesSkipped,
		m.BackfillRunning,
		m.TimelineDates,
		m.FetchRequests,
		m.FetchDuration,
		m.FeedCache,
		m.SnapshotsPublished,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
