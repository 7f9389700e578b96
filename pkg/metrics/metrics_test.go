package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunsTotalIncrements(t *testing.T) {
	RunsTotal.Reset()
	RunsTotal.WithLabelValues("success").Inc()
	RunsTotal.WithLabelValues("success").Inc()
	RunsTotal.WithLabelValues("failure").Inc()

	if got := testutil.ToFloat64(RunsTotal.WithLabelValues("success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues("failure")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestReliabilityScoreGauge(t *testing.T) {
	ReliabilityScore.Set(87.5)
	if got := testutil.ToFloat64(ReliabilityScore); got != 87.5 {
		t.Fatalf("expected 87.5, got %v", got)
	}
}

func TestHandlerServesRegisteredCollectors(t *testing.T) {
	if Handler() == nil {
		t.Fatal("expected non-nil handler")
	}
}
