package coverage

import "github.com/e35zhang/Clotho-Simulation-Engine/pkg/metrics"

// Publish pushes a freshly computed Score and the tracker's raw counters to
// Clotho's Prometheus collectors (spec's own SPEC_FULL.md §4.7 expansion),
// grounded on the teacher's pkg/metrics gauge-per-figure convention.
func Publish(tracker *Tracker, score Score) {
	metrics.CoverageUniqueStates.Set(float64(tracker.UniqueCount()))
	metrics.CoverageObservations.Set(float64(tracker.Observations()))
	metrics.ReliabilityScore.Set(score.Reliability)
}
