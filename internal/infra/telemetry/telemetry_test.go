package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDecisionMetricsOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewDecisionMetrics(registry)
	if err != nil {
		t.Fatalf("NewDecisionMetrics returned error: %v", err)
	}

	metrics.ObserveDecision("geo_access", true, false)
	metrics.ObserveDecision("geo_access", false, false)
	metrics.ObserveDecision("geo_access", false, true)
	metrics.ObserveConflict("concurrent_update")

	for outcome, want := range map[string]float64{OutcomeAllow: 1, OutcomeDeny: 1, OutcomeError: 1} {
		if got := testutil.ToFloat64(metrics.Decisions.WithLabelValues("geo_access", outcome)); got != want {
			t.Fatalf("outcome %s: expected %v, got %v", outcome, want, got)
		}
	}
	if got := testutil.ToFloat64(metrics.Conflicts.WithLabelValues("concurrent_update")); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
}

func TestNewDecisionMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewDecisionMetrics(registry)
	if err != nil {
		t.Fatalf("first NewDecisionMetrics returned error: %v", err)
	}
	second, err := NewDecisionMetrics(registry)
	if err != nil {
		t.Fatalf("second NewDecisionMetrics returned error: %v", err)
	}
	if first.Decisions != second.Decisions {
		t.Fatal("expected the registered collector to be reused")
	}
}

func TestDecisionMetricsNilSafe(t *testing.T) {
	var metrics *DecisionMetrics
	metrics.ObserveDecision("acl", true, false)
	metrics.ObserveConflict("validation_error")
}
