package port

import (
	"context"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

// SyncRepository persists synchronized records and their conflicts.
type SyncRepository interface {
	GetRecord(ctx context.Context, tableName, recordID string) (*domain.SyncRecord, error)
	// ApplyWrite stores write and returns the new version. It fails with
	// repository.ErrVersionMismatch when the stored version differs from
	// write.ExpectedVersion (0 meaning "record must not exist").
	ApplyWrite(ctx context.Context, write domain.RecordWrite) (int64, error)
	// ListChangedSince returns records of tableName bound to sessionID whose
	// revision is greater than since, in revision order.
	ListChangedSince(ctx context.Context, tableName, sessionID string, since int64, limit int) ([]domain.SyncRecord, error)

	CreateConflict(ctx context.Context, conflict domain.SyncConflict) error
	GetConflict(ctx context.Context, id string) (*domain.SyncConflict, error)
	ListUnresolved(ctx context.Context, sessionID, userID string) ([]domain.SyncConflict, error)
	HasUnresolved(ctx context.Context, tableName, recordID string) (bool, error)
	// ResolveConflict atomically flips the conflict from unresolved to
	// resolved and applies write (when non-nil) in the same transaction.
	// It fails with repository.ErrAlreadyResolved if the conflict was
	// resolved before, in which case nothing is written.
	ResolveConflict(ctx context.Context, conflictID string, strategy domain.ResolutionStrategy, write *domain.RecordWrite) error
}
