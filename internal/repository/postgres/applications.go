package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/repository"
)

// ApplicationRepository reads permit applications.
type ApplicationRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewApplicationRepository constructs a PostgreSQL-backed application repository.
func NewApplicationRepository(exec pgExecutor) *ApplicationRepository {
	return &ApplicationRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// GetByID retrieves an application by identifier.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	stmt, args, err := r.builder.
		Select("id", "applicant_id", "assigned_to_id", "status", "created_at").
		From(table("applications")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select application sql: %w", err)
	}

	var (
		app      domain.Application
		assigned sql.NullString
	)
	err = r.exec.QueryRow(ctx, stmt, args...).Scan(
		&app.ID,
		&app.ApplicantID,
		&assigned,
		&app.Status,
		&app.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.AssignedToID = nullableString(assigned)

	return &app, nil
}

var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
