package harness

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	// setupAttempts prometheus metric.
	setupAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of setup sequence executions",
			Name:      "setup_attempts_total",
			Namespace: "harness",
		},
	)
	// setupFailures prometheus metric.
	setupFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of failed setup sequences by stage",
			Name:      "setup_failures_total",
			Namespace: "harness",
		},
		[]string{"stage"},
	)
	// setupDuration prometheus metric.
	setupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Help:      "Setup sequence duration in seconds",
			Name:      "setup_duration_seconds",
			Namespace: "harness",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(
		setupAttempts,
		setupFailures,
		setupDuration,
	)
}

func addSetupFailure(stage Stage) {
	setupFailures.WithLabelValues(string(stage)).Inc()
}
