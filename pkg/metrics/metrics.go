// Package metrics exposes Prometheus collectors for pipeline monitoring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "The total number of pipeline runs by terminal status",
	}, []string{"status"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_phase_seconds",
		Help:    "Time spent in each pipeline phase",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"phase"})

	PhaseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_phase_failures_total",
		Help: "Pipeline phase failures by phase and error code",
	}, []string{"phase", "code"})

	TokenSelections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_token_selections_total",
		Help: "Runs halted for token disambiguation",
	})

	DuplicateRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_duplicate_rejections_total",
		Help: "Operations rejected by the idempotency guard",
	})

	ChainSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_chain_switches_total",
		Help: "Chain switch sequences performed, by target chain",
	}, []string{"chain_id"})

	CircuitOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_circuit_opens_total",
		Help: "Times a chain's circuit breaker opened",
	}, []string{"chain_id"})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_active_runs",
		Help: "Pipeline runs currently in flight",
	})

	GasPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pipeline_gas_price_gwei",
		Help: "Last observed gas price in gwei",
	}, []string{"chain_id"})
)
