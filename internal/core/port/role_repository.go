package port

import (
	"context"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

// RoleAssignmentRepository loads the roles and department bindings held by a user.
// Implementations return assignments in a stable order; the first is primary.
type RoleAssignmentRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.RoleAssignment, error)
}
