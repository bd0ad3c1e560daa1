package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

// LoginInput captures mobile credentials.
type LoginInput struct {
	Username string
	Password string
	DeviceID string
}

// LoginResult is the issued mobile session.
type LoginResult struct {
	UserID      string
	SessionID   string
	AccessToken string
	ExpiresAt   time.Time
}

// MobileAuthService authenticates mobile bearer tokens and enriches them
// into an AuthContext.
type MobileAuthService struct {
	verifier port.TokenVerifier
	issuer   port.TokenIssuer
	hasher   port.PasswordHasher
	users    port.UserRepository
	roles    *RoleAssignmentResolver
	geo      *GeographicAccessResolver
	decisionRecorder
}

// NewMobileAuthService constructs a MobileAuthService. tokens may be nil, in
// which case every authentication fails with ErrAuthNotConfigured.
func NewMobileAuthService(
	tokens port.TokenService,
	hasher port.PasswordHasher,
	users port.UserRepository,
	roles *RoleAssignmentResolver,
	geo *GeographicAccessResolver,
	opts ...Option,
) *MobileAuthService {
	svc := &MobileAuthService{
		hasher:           hasher,
		users:            users,
		roles:            roles,
		geo:              geo,
		decisionRecorder: newDecisionRecorder(opts),
	}
	if tokens != nil {
		svc.verifier = tokens
		svc.issuer = tokens
	}
	return svc
}

// Authenticate verifies token and returns the enriched identity of its subject.
func (s *MobileAuthService) Authenticate(ctx context.Context, token string) (domain.AuthContext, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.AuthContext{}, ErrTokenMissing
	}
	if s.verifier == nil {
		return domain.AuthContext{}, ErrAuthNotConfigured
	}

	claims, err := s.verifier.Verify(token)
	if err != nil {
		return domain.AuthContext{}, err
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return domain.AuthContext{}, ErrTokenClaimsInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AuthContext{}, ErrUserNotFound
		}
		return domain.AuthContext{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return domain.AuthContext{}, ErrAccountDisabled
	}

	assignments, err := s.geo.ActiveAssignments(ctx, user.ID)
	if err != nil {
		return domain.AuthContext{}, fmt.Errorf("load geographic assignments: %w", err)
	}

	auth := domain.AuthContext{
		UserID:                user.ID,
		RoleCode:              user.RoleCode,
		DepartmentID:          user.DepartmentID,
		DeviceID:              claims.DeviceID,
		SessionID:             claims.SessionID,
		GeographicAssignments: assignments,
	}

	roles := s.roles.GetUserRolesAndDepartments(ctx, user.ID)
	for i, role := range roles {
		if i == 0 {
			auth.RoleCode = role.RoleCode
			if role.DepartmentID != nil {
				auth.DepartmentID = role.DepartmentID
			}
		}
		auth.Roles = append(auth.Roles, role.RoleCode)
	}
	if len(auth.Roles) == 0 && auth.RoleCode != "" {
		auth.Roles = []string{auth.RoleCode}
	}

	return auth.Clone(), nil
}

// Login verifies username and password and issues a mobile access token
// bound to a new session.
func (s *MobileAuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if s.issuer == nil || s.hasher == nil {
		return nil, ErrAuthNotConfigured
	}

	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn("password verification failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	sessionID := uuid.NewString()
	token, expiresAt, err := s.issuer.Issue(user.ID, input.DeviceID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &LoginResult{
		UserID:      user.ID,
		SessionID:   sessionID,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}
