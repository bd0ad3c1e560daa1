package port

import (
	"context"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

// ApplicationRepository reads permit applications.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Application, error)
}

// SurveySessionRepository reads field survey sessions.
type SurveySessionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.SurveySession, error)
}
