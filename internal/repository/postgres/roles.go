package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

// RoleAssignmentRepository reads user role bindings.
type RoleAssignmentRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleAssignmentRepository constructs a PostgreSQL-backed role assignment repository.
func NewRoleAssignmentRepository(exec pgExecutor) *RoleAssignmentRepository {
	return &RoleAssignmentRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// ListByUser returns the user's roles, oldest assignment first.
func (r *RoleAssignmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.RoleAssignment, error) {
	stmt, args, err := r.builder.
		Select("ur.user_id", "r.id", "r.name", "r.code", "ur.department_id").
		From(table("user_roles") + " ur").
		Join(table("roles") + " r ON r.id = ur.role_id").
		Where(squirrel.Eq{"ur.user_id": userID}).
		OrderBy("ur.assigned_at ASC", "r.code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list user roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.RoleAssignment
	for rows.Next() {
		var (
			role       domain.RoleAssignment
			department sql.NullString
		)
		if err := rows.Scan(&role.UserID, &role.RoleID, &role.RoleName, &role.RoleCode, &department); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		if department.Valid {
			role.DepartmentID = &department.String
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user roles: %w", err)
	}

	return roles, nil
}

var _ port.RoleAssignmentRepository = (*RoleAssignmentRepository)(nil)
