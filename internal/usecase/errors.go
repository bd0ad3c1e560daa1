package usecase

import (
	"errors"
	"fmt"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

var (
	// ErrTokenMissing indicates the request carried no bearer token.
	ErrTokenMissing = fmt.Errorf("token missing: %w", domain.ErrAuthentication)
	// ErrTokenClaimsInvalid indicates a verified token without a subject.
	ErrTokenClaimsInvalid = fmt.Errorf("token claims invalid: %w", domain.ErrAuthentication)
	// ErrUserNotFound indicates the token subject does not exist.
	ErrUserNotFound = fmt.Errorf("user not found: %w", domain.ErrAuthentication)
	// ErrAccountDisabled indicates the user exists but was deactivated.
	ErrAccountDisabled = fmt.Errorf("account disabled: %w", domain.ErrAuthentication)
	// ErrInvalidCredentials indicates the username or password is wrong.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrAuthentication)
	// ErrAuthNotConfigured indicates the gate was built without a signing secret.
	ErrAuthNotConfigured = fmt.Errorf("token signing not configured: %w", domain.ErrConfiguration)

	// ErrStorageNotConfigured indicates object storage or its path prefix is missing.
	ErrStorageNotConfigured = fmt.Errorf("object storage not configured: %w", domain.ErrConfiguration)
	// ErrObjectNotFound indicates the addressed object does not exist.
	ErrObjectNotFound = fmt.Errorf("object not found: %w", domain.ErrNotFound)
	// ErrInvalidPolicy indicates an ACL policy that cannot be stored.
	ErrInvalidPolicy = errors.New("invalid acl policy")
	// ErrInvalidFilename indicates an upload filename that cannot form an object key.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrInvalidSyncRequest indicates a malformed push, pull or resolve request.
	ErrInvalidSyncRequest = errors.New("invalid sync request")
	// ErrTooManyDeltas indicates a push larger than the configured batch limit.
	ErrTooManyDeltas = errors.New("too many deltas in push")
	// ErrInvalidStrategy indicates an unknown resolution strategy.
	ErrInvalidStrategy = errors.New("invalid resolution strategy")
	// ErrStrategyNotAllowed indicates a strategy not permitted for the conflict type.
	ErrStrategyNotAllowed = errors.New("resolution strategy not allowed for conflict type")
	// ErrResolutionInvalid indicates the resolved value fails record validation.
	ErrResolutionInvalid = errors.New("resolved value fails validation")
	// ErrSessionAccessDenied indicates the caller may not read or write the survey session's records.
	ErrSessionAccessDenied = fmt.Errorf("survey session access denied: %w", domain.ErrAuthorization)
	// ErrConflictNotFound indicates the conflict id is unknown.
	ErrConflictNotFound = fmt.Errorf("sync conflict not found: %w", domain.ErrNotFound)
	// ErrConflictForbidden indicates the conflict belongs to another user or session.
	ErrConflictForbidden = fmt.Errorf("sync conflict belongs to another owner: %w", domain.ErrAuthorization)
	// ErrConflictAlreadyResolved indicates a second resolution of the same conflict.
	ErrConflictAlreadyResolved = fmt.Errorf("sync conflict already resolved: %w", domain.ErrConflict)
	// ErrConflictStale indicates the record moved after the conflict was recorded.
	ErrConflictStale = fmt.Errorf("sync conflict is stale: %w", domain.ErrConflict)
)
