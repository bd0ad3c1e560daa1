package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

// GeographicAssignmentRepository reads user geographic assignments.
type GeographicAssignmentRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewGeographicAssignmentRepository constructs a PostgreSQL-backed assignment repository.
func NewGeographicAssignmentRepository(exec pgExecutor) *GeographicAssignmentRepository {
	return &GeographicAssignmentRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// ListActiveByUser returns the user's active assignments.
func (r *GeographicAssignmentRepository) ListActiveByUser(ctx context.Context, userID string) ([]domain.GeographicAssignment, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"user_id",
			"governorate_id",
			"district_id",
			"sub_district_id",
			"neighborhood_id",
			"assignment_level",
			"can_read",
			"can_write",
			"can_approve",
			"is_active",
		).
		From(table("user_geographic_assignments")).
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list geographic assignments sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query geographic assignments: %w", err)
	}
	defer rows.Close()

	var assignments []domain.GeographicAssignment
	for rows.Next() {
		var (
			a                                        domain.GeographicAssignment
			governorate, district, sub, neighborhood sql.NullString
			level                                    string
		)
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&governorate,
			&district,
			&sub,
			&neighborhood,
			&level,
			&a.CanRead,
			&a.CanWrite,
			&a.CanApprove,
			&a.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan geographic assignment: %w", err)
		}
		a.AssignmentLevel = domain.AssignmentLevel(level)
		a.Scope = domain.GeographicScope{
			GovernorateID:  nullableString(governorate),
			DistrictID:     nullableString(district),
			SubDistrictID:  nullableString(sub),
			NeighborhoodID: nullableString(neighborhood),
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate geographic assignments: %w", err)
	}

	return assignments, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

var _ port.GeographicAssignmentRepository = (*GeographicAssignmentRepository)(nil)
