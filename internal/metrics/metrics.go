// Package metrics defines the Prometheus metrics exported by refmatch.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "refmatch"

// Pipeline metrics.
var (
	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Reference extractions by backend and outcome",
		},
		[]string{"backend", "status"}, // "ok" / "error" / "panic"
	)

	ExtractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Per-reference extraction duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend"},
	)

	MatchResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_results_total",
			Help:      "Classified references by outcome",
		},
		[]string{"classification"},
	)

	MatchConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_confidence",
			Help:      "Best confidence per classified reference",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by cache and result",
		},
		[]string{"cache", "result"}, // "hit" / "miss" / "error"
	)

	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to external services by service and status",
		},
		[]string{"service", "status"},
	)
)

var registered bool

// Register registers all refmatch metrics with the default registry.
// Safe to call more than once.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		ExtractionsTotal,
		ExtractionDuration,
		MatchResultsTotal,
		MatchConfidence,
		CacheRequestsTotal,
		UpstreamRequestsTotal,
		httpRequestDuration,
		httpRequestsTotal,
	)
	registered = true
}
