package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()
	asyncProducer := newFakeAsyncProducer()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "portal",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "portal-core",
		Env:  "test",
	}, zaptest.NewLogger(t))
	return publisher, asyncProducer
}

func receiveEnvelope(t *testing.T, asyncProducer *fakeAsyncProducer) (*sarama.ProducerMessage, map[string]any) {
	t.Helper()
	select {
	case msg := <-asyncProducer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return msg, envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
	return nil, nil
}

func TestPublishAccessDenied(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	deniedAt := time.Date(2026, 4, 2, 9, 15, 0, 0, time.UTC)
	event := domain.AccessDeniedEvent{
		EventID:  "evt-1",
		UserID:   "user-7",
		Check:    "geographic_scope",
		Code:     "GEOGRAPHIC_ACCESS_DENIED",
		Resource: "/api/v1/geo/check",
		TraceID:  "req-1",
		DeniedAt: deniedAt,
		Metadata: map[string]any{"governorateId": "G2"},
	}

	if err := publisher.PublishAccessDenied(context.Background(), event); err != nil {
		t.Fatalf("PublishAccessDenied returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, asyncProducer)
	if msg.Topic != "portal.access.denied" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}

	key, err := msg.Key.Encode()
	if err != nil {
		t.Fatalf("Key.Encode returned error: %v", err)
	}
	if string(key) != event.UserID {
		t.Fatalf("expected message keyed by user, got %q", key)
	}

	if got := envelope["event_type"]; got != EventAccessDenied {
		t.Fatalf("unexpected event_type: %v", got)
	}
	if got := envelope["event_id"]; got != event.EventID {
		t.Fatalf("unexpected event_id: %v", got)
	}
	if timestamp, _ := envelope["timestamp"].(string); timestamp != deniedAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %v", envelope["timestamp"])
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}
	if payload["code"] != event.Code || payload["check"] != event.Check {
		t.Fatalf("unexpected payload: %v", payload)
	}

	metadata, ok := envelope["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
	}
	if metadata["service"] != "portal-core" || metadata["environment"] != "test" {
		t.Fatalf("unexpected envelope metadata: %v", metadata)
	}
}

func TestPublishSyncConflictLifecycle(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	if err := publisher.PublishSyncConflictRecorded(context.Background(), domain.SyncConflictRecordedEvent{
		ConflictID:   "c-1",
		SessionID:    "sync-1",
		UserID:       "user-1",
		TableName:    "parcels",
		RecordID:     "p-1",
		ConflictType: domain.ConflictConcurrentUpdate,
		RecordedAt:   at,
	}); err != nil {
		t.Fatalf("PublishSyncConflictRecorded returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, asyncProducer)
	if msg.Topic != "portal.sync.conflict.recorded" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if envelope["event_id"] == "" {
		t.Fatal("expected a generated event id")
	}
	payload := envelope["payload"].(map[string]any)
	if payload["conflict_type"] != "concurrent_update" {
		t.Fatalf("unexpected conflict_type: %v", payload["conflict_type"])
	}

	if err := publisher.PublishSyncConflictResolved(context.Background(), domain.SyncConflictResolvedEvent{
		ConflictID: "c-1",
		UserID:     "user-1",
		Strategy:   domain.ResolveMerge,
		ResolvedAt: at.Add(time.Minute),
	}); err != nil {
		t.Fatalf("PublishSyncConflictResolved returned error: %v", err)
	}

	msg, envelope = receiveEnvelope(t, asyncProducer)
	if msg.Topic != "portal.sync.conflict.resolved" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if got := envelope["payload"].(map[string]any)["strategy"]; got != "merge" {
		t.Fatalf("unexpected strategy: %v", got)
	}
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishAccessDenied(ctx, domain.AccessDeniedEvent{UserID: "user-1"})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTopicNameDoesNotDoublePrefix(t *testing.T) {
	producer := &Producer{cfg: config.KafkaSettings{TopicPrefix: "portal"}}
	if got := producer.TopicName("portal.access.denied"); got != "portal.access.denied" {
		t.Fatalf("unexpected topic: %s", got)
	}
	if got := producer.TopicName(EventAccessDenied); got != "portal.access.denied" {
		t.Fatalf("unexpected topic: %s", got)
	}
}
