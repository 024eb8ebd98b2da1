package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_review_cache_lookups_total",
			Help: "Review pool lookups by result (hit or miss)",
		},
		[]string{"result"},
	)

	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_review_requests_total",
			Help: "Upstream review provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_review_request_duration_seconds",
			Help:    "Latency of upstream review provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ReviewsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_persisted_total",
			Help: "Normalized reviews handled by the persistence layer by outcome",
		},
		[]string{"outcome"},
	)

	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_sweep_runs_total",
			Help: "Ingestion sweep runs by result",
		},
		[]string{"result"},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "review_sweep_duration_seconds",
			Help:    "Wall time of a full ingestion sweep",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_circuit_breaker_state",
			Help: "Current state of the upstream circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(
		CacheLookups,
		UpstreamRequests,
		UpstreamDuration,
		ReviewsPersisted,
		SweepRuns,
		SweepDuration,
		BreakerState,
	)
}
