package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchesProposed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xperia_matches_proposed_total",
			Help: "Total number of matches proposed",
		},
		[]string{"strategy"},
	)

	matchResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xperia_match_responses_total",
			Help: "Accept and decline responses that changed a match",
		},
		[]string{"response"},
	)

	matchesExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xperia_matches_expired_total",
			Help: "Total number of pending matches expired",
		},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xperia_compatibility_scores",
			Help:    "Distribution of compatibility scores of proposed matches",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	sweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xperia_agent_sweep_failures_total",
			Help: "Per-user agent sweeps that failed",
		},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "xperia_agent_sweep_duration_seconds",
			Help: "Duration of a full agent sweep",
		},
	)
)
