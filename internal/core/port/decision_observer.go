package port

// DecisionObserver records the outcome of authorization checks.
type DecisionObserver interface {
	ObserveDecision(check string, allowed bool, failed bool)
	ObserveConflict(conflictType string)
}
