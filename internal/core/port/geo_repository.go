package port

import (
	"context"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

// GeographicAssignmentRepository loads geographic assignments.
type GeographicAssignmentRepository interface {
	// ListActiveByUser returns only assignments with IsActive set.
	ListActiveByUser(ctx context.Context, userID string) ([]domain.GeographicAssignment, error)
}
