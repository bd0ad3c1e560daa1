package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

// GeoMatchMode selects how an assignment's scope is compared to a target scope.
type GeoMatchMode string

const (
	// GeoMatchExact requires every field present in the target to be present
	// and equal on the assignment. A governorate assignment does not cover its
	// districts.
	GeoMatchExact GeoMatchMode = "exact"
	// GeoMatchHierarchical treats an assignment as covering every scope
	// beneath it: each field the assignment sets must equal the target's.
	GeoMatchHierarchical GeoMatchMode = "hierarchical"
)

// ParseGeoMatchMode maps a configuration value to a mode. Empty means exact.
func ParseGeoMatchMode(value string) (GeoMatchMode, error) {
	switch GeoMatchMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", GeoMatchExact:
		return GeoMatchExact, nil
	case GeoMatchHierarchical:
		return GeoMatchHierarchical, nil
	default:
		return "", fmt.Errorf("%w: unknown geo match mode %q", domain.ErrConfiguration, value)
	}
}

// GeographicAccessResolver answers whether a user's active assignments cover a scope.
type GeographicAccessResolver struct {
	assignments port.GeographicAssignmentRepository
	mode        GeoMatchMode
	decisionRecorder
}

// NewGeographicAccessResolver constructs a resolver using mode for matching.
func NewGeographicAccessResolver(assignments port.GeographicAssignmentRepository, mode GeoMatchMode, opts ...Option) *GeographicAccessResolver {
	if mode == "" {
		mode = GeoMatchExact
	}
	return &GeographicAccessResolver{
		assignments:      assignments,
		mode:             mode,
		decisionRecorder: newDecisionRecorder(opts),
	}
}

// Mode returns the configured matching mode.
func (r *GeographicAccessResolver) Mode() GeoMatchMode {
	return r.mode
}

// HasAccess reports whether at least one active, readable assignment of
// userID matches target. Lookup failures deny.
func (r *GeographicAccessResolver) HasAccess(ctx context.Context, userID string, target domain.GeographicScope) bool {
	return r.evaluateOrDeny(ctx, CheckGeographicAccess, func(ctx context.Context) (bool, error) {
		if strings.TrimSpace(userID) == "" {
			return false, nil
		}
		assignments, err := r.ActiveAssignments(ctx, userID)
		if err != nil {
			return false, err
		}
		return r.Matches(assignments, target), nil
	})
}

// ActiveAssignments loads the user's assignments and drops inactive rows
// even if the repository returned them.
func (r *GeographicAccessResolver) ActiveAssignments(ctx context.Context, userID string) ([]domain.GeographicAssignment, error) {
	rows, err := r.assignments.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list geographic assignments: %w", err)
	}

	active := make([]domain.GeographicAssignment, 0, len(rows))
	for _, row := range rows {
		if row.IsActive {
			active = append(active, row)
		}
	}
	return active, nil
}

// Matches reports whether any readable assignment covers target.
func (r *GeographicAccessResolver) Matches(assignments []domain.GeographicAssignment, target domain.GeographicScope) bool {
	for _, assignment := range assignments {
		if !assignment.IsActive || !assignment.CanRead {
			continue
		}
		if r.matchScope(assignment.Scope, target) {
			return true
		}
	}
	return false
}

func (r *GeographicAccessResolver) matchScope(granted, target domain.GeographicScope) bool {
	if r.mode == GeoMatchHierarchical {
		return matchHierarchical(granted, target)
	}
	return matchExact(granted, target)
}

func matchExact(granted, target domain.GeographicScope) bool {
	grantedFields := granted.Fields()
	for i, want := range target.Fields() {
		if want == nil {
			continue
		}
		have := grantedFields[i]
		if have == nil || *have != *want {
			return false
		}
	}
	return true
}

func matchHierarchical(granted, target domain.GeographicScope) bool {
	if granted.IsEmpty() {
		return false
	}
	targetFields := target.Fields()
	for i, have := range granted.Fields() {
		if have == nil {
			continue
		}
		want := targetFields[i]
		if want == nil || *want != *have {
			return false
		}
	}
	return true
}
