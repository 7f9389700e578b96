// Package metrics exposes the Prometheus collectors Clotho's chaos matrix and
// coverage tracker publish after each run and each batch.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds Clotho's own collectors, separate from the global default
// registry so embedding applications don't collide with it.
var Registry = prometheus.NewRegistry()

var (
	// RunsTotal counts completed runs by outcome ("success" or "failure").
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clotho",
			Subsystem: "chaos",
			Name:      "runs_total",
			Help:      "Total number of simulation runs completed, by outcome.",
		},
		[]string{"outcome"},
	)

	// RunDuration tracks wall-clock duration of individual runs.
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clotho",
			Subsystem: "chaos",
			Name:      "run_duration_seconds",
			Help:      "Duration of a single simulation run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		},
	)

	// EventsPerRun tracks how many events a run emitted before terminating.
	EventsPerRun = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clotho",
			Subsystem: "kernel",
			Name:      "events_per_run",
			Help:      "Number of events emitted by a single run before termination.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		},
	)

	// CoverageUniqueStates is the size of the coverage tracker's fingerprint
	// set after the most recent batch.
	CoverageUniqueStates = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clotho",
			Subsystem: "coverage",
			Name:      "unique_states",
			Help:      "Unique state fingerprints observed across the most recent batch.",
		},
	)

	// CoverageObservations is the total number of fingerprint observations
	// recorded across the most recent batch.
	CoverageObservations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clotho",
			Subsystem: "coverage",
			Name:      "observations_total",
			Help:      "Total fingerprint observations recorded across the most recent batch.",
		},
	)

	// ReliabilityScore is the most recently computed reliability score, in [0,100].
	ReliabilityScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clotho",
			Subsystem: "coverage",
			Name:      "reliability_score",
			Help:      "Most recently computed reliability score in [0, 100].",
		},
	)

	// InvariantFailures counts INVARIANT_FAIL events by invariant name.
	InvariantFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clotho",
			Subsystem: "kernel",
			Name:      "invariant_failures_total",
			Help:      "Total invariant failures recorded, by invariant name.",
		},
		[]string{"invariant"},
	)

	// FaultInjections counts messages dropped by fault injection, by target.
	FaultInjections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clotho",
			Subsystem: "kernel",
			Name:      "fault_injections_total",
			Help:      "Total messages dropped by fault injection, by target.",
		},
		[]string{"target"},
	)
)

func init() {
	Registry.MustRegister(
		RunsTotal,
		RunDuration,
		EventsPerRun,
		CoverageUniqueStates,
		CoverageObservations,
		ReliabilityScore,
		InvariantFailures,
		FaultInjections,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing Clotho's registered metrics, for
// embedding applications that already run an HTTP server; this module does not
// start one itself.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
