package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

// AccessControlService composes the geographic and role resolvers with
// application and survey session lookups. Every call re-queries the store.
type AccessControlService struct {
	geo          *GeographicAccessResolver
	roles        *RoleAssignmentResolver
	applications port.ApplicationRepository
	sessions     port.SurveySessionRepository
	decisionRecorder
}

// NewAccessControlService constructs an AccessControlService.
func NewAccessControlService(
	geo *GeographicAccessResolver,
	roles *RoleAssignmentResolver,
	applications port.ApplicationRepository,
	sessions port.SurveySessionRepository,
	opts ...Option,
) *AccessControlService {
	return &AccessControlService{
		geo:              geo,
		roles:            roles,
		applications:     applications,
		sessions:         sessions,
		decisionRecorder: newDecisionRecorder(opts),
	}
}

// HasGeographicAccess delegates to the geographic resolver.
func (s *AccessControlService) HasGeographicAccess(ctx context.Context, userID string, target domain.GeographicScope) bool {
	return s.geo.HasAccess(ctx, userID, target)
}

// ActiveAssignments returns the user's active geographic assignments.
func (s *AccessControlService) ActiveAssignments(ctx context.Context, userID string) ([]domain.GeographicAssignment, error) {
	return s.geo.ActiveAssignments(ctx, userID)
}

// MatchesScope reports whether any readable assignment covers target.
func (s *AccessControlService) MatchesScope(assignments []domain.GeographicAssignment, target domain.GeographicScope) bool {
	return s.geo.Matches(assignments, target)
}

// UserRoles returns the user's role assignments, or an empty list on failure.
func (s *AccessControlService) UserRoles(ctx context.Context, userID string) []domain.RoleAssignment {
	return s.roles.GetUserRolesAndDepartments(ctx, userID)
}

// IsDepartmentMember delegates to the role resolver.
func (s *AccessControlService) IsDepartmentMember(ctx context.Context, userID, departmentID string) bool {
	return s.roles.IsDepartmentMember(ctx, userID, departmentID)
}

// IsSurveyorOrEngineer delegates to the role resolver.
func (s *AccessControlService) IsSurveyorOrEngineer(ctx context.Context, userID string) bool {
	return s.roles.IsSurveyorOrEngineer(ctx, userID)
}

// IsApplicationStakeholder reports whether userID filed or is assigned the application.
func (s *AccessControlService) IsApplicationStakeholder(ctx context.Context, userID, applicationID string) bool {
	return s.evaluateOrDeny(ctx, CheckApplicationStakeholder, func(ctx context.Context) (bool, error) {
		return s.isStakeholder(ctx, userID, applicationID)
	})
}

// CanAccessSurveySession reports whether userID created the session, has
// geographic access to its start location, or is a stakeholder of the
// application it references.
//
// A session without a start location grants nothing through the geographic
// path, even to users holding a broad or unrestricted assignment; only the
// creator and application stakeholders may then access it. This is stricter
// than treating the empty location as matching every assignment.
func (s *AccessControlService) CanAccessSurveySession(ctx context.Context, userID, sessionID string) bool {
	return s.evaluateOrDeny(ctx, CheckSurveySession, func(ctx context.Context) (bool, error) {
		if strings.TrimSpace(userID) == "" || strings.TrimSpace(sessionID) == "" {
			return false, nil
		}

		session, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("get survey session: %w", err)
		}

		if session.SurveyorID == userID {
			return true, nil
		}

		if !session.StartLocation.IsEmpty() && s.geo.HasAccess(ctx, userID, session.StartLocation) {
			return true, nil
		}

		if session.ApplicationID != nil && *session.ApplicationID != "" {
			return s.isStakeholder(ctx, userID, *session.ApplicationID)
		}
		return false, nil
	})
}

func (s *AccessControlService) isStakeholder(ctx context.Context, userID, applicationID string) (bool, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(applicationID) == "" {
		return false, nil
	}

	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get application: %w", err)
	}

	if application.ApplicantID == userID {
		return true, nil
	}
	return application.AssignedToID != nil && *application.AssignedToID == userID, nil
}
