package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geo_context"

// Metrics holds the Prometheus counters and histograms for context assembly.
type Metrics struct {
	// Upstream provider metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: provider, outcome={success,error,empty,rejected}
	UpstreamDuration *prometheus.HistogramVec // labels: provider

	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: cache={weather,knowledge}, result={hit,miss}
	CacheEntries *prometheus.GaugeVec   // labels: cache

	ContextBuilds    *prometheus.CounterVec // labels: outcome={success,invalid,no_results,error}
	ContextDuration  prometheus.Histogram
	ReportOutcomes   *prometheus.CounterVec // labels: outcome={ai,ai_unavailable,ai_invalid_response}
	Comparisons      prometheus.Counter
	ReportsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheLookups,
		m.CacheEntries,
		m.ContextBuilds,
		m.ContextDuration,
		m.ReportOutcomes,
		m.Comparisons,
		m.ReportsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		CacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries currently held per cache.",
		}, []string{"cache"}),
		ContextBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_builds_total",
			Help:      "Context assemblies by outcome.",
		}, []string{"outcome"}),
		ContextDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_build_duration_seconds",
			Help:      "Duration of a complete context assembly.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ReportOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_outcomes_total",
			Help:      "Generated reports by outcome.",
		}, []string{"outcome"}),
		Comparisons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Total comparisons produced.",
		}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_published_total",
			Help:      "Report events published to Kafka by outcome.",
		}, []string{"outcome"}),
	}
}
