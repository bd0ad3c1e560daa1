package domain

import "errors"

// Error classes. Concrete errors wrap one of these so callers can branch on the
// class with errors.Is without knowing every specific case.
var (
	// ErrAuthentication covers bad, missing or expired tokens and unknown or disabled users.
	ErrAuthentication = errors.New("authentication error")
	// ErrAuthorization covers role mismatches, geographic scope mismatches and ACL rule misses.
	ErrAuthorization = errors.New("authorization error")
	// ErrConfiguration covers missing signing secrets and storage settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound covers absent objects, applications and survey sessions.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers unresolved or re-resolved sync conflicts.
	ErrConflict = errors.New("conflict")
)
