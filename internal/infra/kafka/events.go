package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types, also used as topic suffixes.
const (
	EventAccessDenied         = "access.denied"
	EventSyncConflictRecorded = "sync.conflict.recorded"
	EventSyncConflictResolved = "sync.conflict.resolved"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	if userID != "" {
		message.Key = sarama.StringEncoder(userID)
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccessDenied publishes access.denied audit events.
func (p *EventPublisher) PublishAccessDenied(ctx context.Context, event domain.AccessDeniedEvent) error {
	payload := struct {
		UserID   string         `json:"user_id,omitempty"`
		Check    string         `json:"check"`
		Code     string         `json:"code"`
		Resource string         `json:"resource,omitempty"`
		TraceID  string         `json:"trace_id,omitempty"`
		DeniedAt time.Time      `json:"denied_at"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		UserID:   event.UserID,
		Check:    event.Check,
		Code:     event.Code,
		Resource: event.Resource,
		TraceID:  event.TraceID,
		DeniedAt: event.DeniedAt.UTC(),
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventAccessDenied, event.UserID, event.DeniedAt, payload)
}

// PublishSyncConflictRecorded publishes sync.conflict.recorded events.
func (p *EventPublisher) PublishSyncConflictRecorded(ctx context.Context, event domain.SyncConflictRecordedEvent) error {
	payload := struct {
		ConflictID   string    `json:"conflict_id"`
		SessionID    string    `json:"session_id"`
		UserID       string    `json:"user_id"`
		TableName    string    `json:"table_name"`
		RecordID     string    `json:"record_id"`
		ConflictType string    `json:"conflict_type"`
		RecordedAt   time.Time `json:"recorded_at"`
	}{
		ConflictID:   event.ConflictID,
		SessionID:    event.SessionID,
		UserID:       event.UserID,
		TableName:    event.TableName,
		RecordID:     event.RecordID,
		ConflictType: string(event.ConflictType),
		RecordedAt:   event.RecordedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventSyncConflictRecorded, event.UserID, event.RecordedAt, payload)
}

// PublishSyncConflictResolved publishes sync.conflict.resolved events.
func (p *EventPublisher) PublishSyncConflictResolved(ctx context.Context, event domain.SyncConflictResolvedEvent) error {
	payload := struct {
		ConflictID string    `json:"conflict_id"`
		SessionID  string    `json:"session_id"`
		UserID     string    `json:"user_id"`
		TableName  string    `json:"table_name"`
		RecordID   string    `json:"record_id"`
		Strategy   string    `json:"strategy"`
		ResolvedAt time.Time `json:"resolved_at"`
	}{
		ConflictID: event.ConflictID,
		SessionID:  event.SessionID,
		UserID:     event.UserID,
		TableName:  event.TableName,
		RecordID:   event.RecordID,
		Strategy:   string(event.Strategy),
		ResolvedAt: event.ResolvedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventSyncConflictResolved, event.UserID, event.ResolvedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
