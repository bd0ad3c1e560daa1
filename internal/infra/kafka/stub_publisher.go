package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are reachable.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published", append([]zap.Field{
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
	}, fields...)...)
}

// PublishAccessDenied logs access.denied events.
func (p *StubPublisher) PublishAccessDenied(_ context.Context, event domain.AccessDeniedEvent) error {
	p.logEvent(EventAccessDenied, event.UserID, event.DeniedAt,
		zap.String("check", event.Check),
		zap.String("code", event.Code),
		zap.String("resource", event.Resource),
	)
	return nil
}

// PublishSyncConflictRecorded logs sync.conflict.recorded events.
func (p *StubPublisher) PublishSyncConflictRecorded(_ context.Context, event domain.SyncConflictRecordedEvent) error {
	p.logEvent(EventSyncConflictRecorded, event.UserID, event.RecordedAt,
		zap.String("conflict_id", event.ConflictID),
		zap.String("table_name", event.TableName),
		zap.String("record_id", event.RecordID),
		zap.String("conflict_type", string(event.ConflictType)),
	)
	return nil
}

// PublishSyncConflictResolved logs sync.conflict.resolved events.
func (p *StubPublisher) PublishSyncConflictResolved(_ context.Context, event domain.SyncConflictResolvedEvent) error {
	p.logEvent(EventSyncConflictResolved, event.UserID, event.ResolvedAt,
		zap.String("conflict_id", event.ConflictID),
		zap.String("strategy", string(event.Strategy)),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
