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

// SurveySessionRepository reads field survey sessions.
type SurveySessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSurveySessionRepository constructs a PostgreSQL-backed survey session repository.
func NewSurveySessionRepository(exec pgExecutor) *SurveySessionRepository {
	return &SurveySessionRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// GetByID retrieves a survey session with its recorded start location.
func (r *SurveySessionRepository) GetByID(ctx context.Context, id string) (*domain.SurveySession, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"surveyor_id",
			"application_id",
			"start_governorate_id",
			"start_district_id",
			"start_sub_district_id",
			"start_neighborhood_id",
			"started_at",
		).
		From(table("survey_sessions")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select survey session sql: %w", err)
	}

	var (
		session                                  domain.SurveySession
		application                              sql.NullString
		governorate, district, sub, neighborhood sql.NullString
	)
	err = r.exec.QueryRow(ctx, stmt, args...).Scan(
		&session.ID,
		&session.SurveyorID,
		&application,
		&governorate,
		&district,
		&sub,
		&neighborhood,
		&session.StartedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan survey session: %w", err)
	}

	session.ApplicationID = nullableString(application)
	session.StartLocation = domain.GeographicScope{
		GovernorateID:  nullableString(governorate),
		DistrictID:     nullableString(district),
		SubDistrictID:  nullableString(sub),
		NeighborhoodID: nullableString(neighborhood),
	}

	return &session, nil
}

var _ port.SurveySessionRepository = (*SurveySessionRepository)(nil)
