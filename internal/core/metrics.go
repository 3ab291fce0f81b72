package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	detectionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csvanomaly_detection_runs_total",
			Help: "Detection runs by method and outcome kind (ok for success)",
		},
		[]string{"method", "kind"},
	)

	detectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "csvanomaly_detection_duration_seconds",
			Help:    "Duration of detection runs in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method"},
	)

	anomaliesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csvanomaly_anomalies_found_total",
			Help: "Anomalous rows reported",
		},
		[]string{"method"},
	)

	rowsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "csvanomaly_rows_removed_total",
			Help: "Rows dropped by the missing-value policy",
		},
	)

	explanationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csvanomaly_explanation_outcomes_total",
			Help: "Explanation step outcomes (produced, disabled, failed)",
		},
		[]string{"status"},
	)

	decodeConfigUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csvanomaly_decode_config_total",
			Help: "Decode configuration that succeeded",
		},
		[]string{"config"},
	)

	activeRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "csvanomaly_active_runs",
			Help: "Detection runs currently holding a limiter slot",
		},
	)

	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "csvanomaly_circuit_breaker_state",
			Help: "Collaborator circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"collaborator"},
	)
)

// recordRun records the outcome of one detection run.
func recordRun(method string, err error, seconds float64) {
	kind := "ok"
	if err != nil {
		kind = string(KindOf(err))
	}
	detectionRuns.WithLabelValues(method, kind).Inc()
	detectionDuration.WithLabelValues(method).Observe(seconds)
}

// recordCircuitBreakerState records a collaborator breaker transition.
func recordCircuitBreakerState(name string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateClosed:
		v = 0
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	circuitBreakerState.WithLabelValues(name).Set(v)
}
