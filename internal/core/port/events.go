package port

import (
	"context"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

// EventPublisher publishes audit events to the message bus.
type EventPublisher interface {
	PublishAccessDenied(ctx context.Context, event domain.AccessDeniedEvent) error
	PublishSyncConflictRecorded(ctx context.Context, event domain.SyncConflictRecordedEvent) error
	PublishSyncConflictResolved(ctx context.Context, event domain.SyncConflictResolvedEvent) error
}
