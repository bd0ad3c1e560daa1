package port

import "time"

// MobileTokenClaims are the claims a mobile access token carries.
type MobileTokenClaims struct {
	UserID    string
	DeviceID  string
	SessionID string
	ExpiresAt time.Time
}

// TokenVerifier verifies mobile access tokens.
type TokenVerifier interface {
	Verify(token string) (*MobileTokenClaims, error)
}

// TokenIssuer signs mobile access tokens.
type TokenIssuer interface {
	Issue(userID, deviceID, sessionID string) (token string, expiresAt time.Time, err error)
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// TokenService issues and verifies mobile access tokens.
type TokenService interface {
	TokenVerifier
	TokenIssuer
}
