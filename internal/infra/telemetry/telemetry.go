package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

const namespace = "portal"

// Decision outcomes recorded on portal_authz_decisions_total.
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
)

// Register registers c with reg, returning the already registered collector
// of the same type when one exists.
func Register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return c, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return c, nil
}

// DecisionMetrics counts authorization outcomes and sync conflicts.
type DecisionMetrics struct {
	Decisions *prometheus.CounterVec
	Conflicts *prometheus.CounterVec
}

// NewDecisionMetrics registers the decision collectors with reg.
func NewDecisionMetrics(reg prometheus.Registerer) (*DecisionMetrics, error) {
	decisions, err := Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_decisions_total",
		Help:      "Authorization decisions partitioned by check and outcome.",
	}, []string{"check", "outcome"}))
	if err != nil {
		return nil, err
	}

	conflicts, err := Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_conflicts_total",
		Help:      "Sync conflicts recorded partitioned by conflict type.",
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	return &DecisionMetrics{Decisions: decisions, Conflicts: conflicts}, nil
}

// ObserveDecision records one check outcome. failed marks a deny caused by
// an internal fault rather than a policy miss.
func (m *DecisionMetrics) ObserveDecision(check string, allowed bool, failed bool) {
	if m == nil {
		return
	}
	outcome := OutcomeDeny
	switch {
	case failed:
		outcome = OutcomeError
	case allowed:
		outcome = OutcomeAllow
	}
	m.Decisions.WithLabelValues(check, outcome).Inc()
}

// ObserveConflict records a newly detected sync conflict.
func (m *DecisionMetrics) ObserveConflict(conflictType string) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(conflictType).Inc()
}

var _ port.DecisionObserver = (*DecisionMetrics)(nil)
