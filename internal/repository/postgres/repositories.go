package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users          *UserRepository
	Roles          *RoleAssignmentRepository
	Geographic     *GeographicAssignmentRepository
	Applications   *ApplicationRepository
	SurveySessions *SurveySessionRepository
	Sync           *SyncRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:          NewUserRepository(pool),
		Roles:          NewRoleAssignmentRepository(pool),
		Geographic:     NewGeographicAssignmentRepository(pool),
		Applications:   NewApplicationRepository(pool),
		SurveySessions: NewSurveySessionRepository(pool),
		Sync:           NewSyncRepository(pool),
	}
}
