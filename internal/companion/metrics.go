package companion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "xperia_companion_generation_duration_seconds",
			Help: "Latency of text generation calls",
		},
		[]string{"task"},
	)

	generationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xperia_companion_generation_failures_total",
			Help: "Text generation calls that fell back",
		},
		[]string{"task"},
	)
)
