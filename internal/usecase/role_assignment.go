package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

// RoleAssignmentResolver resolves the roles and departments a user holds.
type RoleAssignmentResolver struct {
	roles port.RoleAssignmentRepository
	decisionRecorder
}

// NewRoleAssignmentResolver constructs a RoleAssignmentResolver.
func NewRoleAssignmentResolver(roles port.RoleAssignmentRepository, opts ...Option) *RoleAssignmentResolver {
	return &RoleAssignmentResolver{roles: roles, decisionRecorder: newDecisionRecorder(opts)}
}

// GetUserRolesAndDepartments returns the user's role assignments, primary
// first. A failed lookup yields an empty list.
func (r *RoleAssignmentResolver) GetUserRolesAndDepartments(ctx context.Context, userID string) []domain.RoleAssignment {
	assignments, err := r.list(ctx, userID)
	if err != nil {
		r.log.Error("failed to resolve user roles", zap.String("user_id", userID), zap.Error(err))
		return []domain.RoleAssignment{}
	}
	return assignments
}

// IsDepartmentMember reports whether any of the user's roles is bound to departmentID.
func (r *RoleAssignmentResolver) IsDepartmentMember(ctx context.Context, userID, departmentID string) bool {
	return r.evaluateOrDeny(ctx, CheckDepartmentMember, func(ctx context.Context) (bool, error) {
		departmentID = strings.TrimSpace(departmentID)
		if departmentID == "" {
			return false, nil
		}
		assignments, err := r.list(ctx, userID)
		if err != nil {
			return false, err
		}
		for _, assignment := range assignments {
			if assignment.DepartmentID != nil && *assignment.DepartmentID == departmentID {
				return true, nil
			}
		}
		return false, nil
	})
}

// IsSurveyorOrEngineer reports whether the user holds a field-certified role.
func (r *RoleAssignmentResolver) IsSurveyorOrEngineer(ctx context.Context, userID string) bool {
	return r.evaluateOrDeny(ctx, CheckSurveyorRole, func(ctx context.Context) (bool, error) {
		assignments, err := r.list(ctx, userID)
		if err != nil {
			return false, err
		}
		for _, assignment := range assignments {
			if domain.IsSurveyorRole(assignment.RoleCode) {
				return true, nil
			}
		}
		return false, nil
	})
}

func (r *RoleAssignmentResolver) list(ctx context.Context, userID string) ([]domain.RoleAssignment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	assignments, err := r.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	return assignments, nil
}
