package repository

import (
	"errors"
	"fmt"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = fmt.Errorf("repository: %w", domain.ErrNotFound)
	// ErrVersionMismatch indicates an optimistic write lost against a concurrent one.
	ErrVersionMismatch = errors.New("repository: version mismatch")
	// ErrAlreadyResolved indicates a sync conflict was resolved before.
	ErrAlreadyResolved = fmt.Errorf("repository: conflict already resolved: %w", domain.ErrConflict)
)
