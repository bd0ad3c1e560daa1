package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

var (
	// ErrSigningSecretMissing is fatal at startup.
	ErrSigningSecretMissing = fmt.Errorf("jwt: signing secret not configured: %w", domain.ErrConfiguration)

	ErrTokenExpired   = fmt.Errorf("jwt: token expired: %w", domain.ErrAuthentication)
	ErrTokenNotActive = fmt.Errorf("jwt: token not active yet: %w", domain.ErrAuthentication)
	ErrTokenMalformed = fmt.Errorf("jwt: token malformed: %w", domain.ErrAuthentication)
	ErrTokenInvalid   = fmt.Errorf("jwt: token invalid: %w", domain.ErrAuthentication)
)

const defaultMobileTokenTTL = 12 * time.Hour

// MobileClaims are the claims carried by mobile access tokens.
type MobileClaims struct {
	UserID    string `json:"userId"`
	DeviceID  string `json:"deviceId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 mobile tokens with a shared secret.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager fails with ErrSigningSecretMissing when secret is blank.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSigningSecretMissing
	}
	if ttl <= 0 {
		ttl = defaultMobileTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue signs a token for the given user, device and sync session.
func (m *TokenManager) Issue(userID, deviceID, sessionID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("jwt: user id is required")
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &MobileClaims{
		UserID:    userID,
		DeviceID:  strings.TrimSpace(deviceID),
		SessionID: strings.TrimSpace(sessionID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, issuer and time claims.
func (m *TokenManager) Verify(token string) (*port.MobileTokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &MobileClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if strings.TrimSpace(claims.UserID) == "" {
		return nil, fmt.Errorf("%w: userId claim missing", ErrTokenInvalid)
	}

	result := &port.MobileTokenClaims{
		UserID:    claims.UserID,
		DeviceID:  claims.DeviceID,
		SessionID: claims.SessionID,
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotActive
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrTokenInvalid
	}
}

var (
	_ port.TokenIssuer   = (*TokenManager)(nil)
	_ port.TokenVerifier = (*TokenManager)(nil)
)
