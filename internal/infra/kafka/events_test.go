package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/infra/config"
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

func newTestPublisher(t *testing.T, asyncProducer *fakeAsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer:    asyncProducer,
		logger:      zaptest.NewLogger(t),
		topicPrefix: "auth",
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "auth-service",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishSessionsRevoked(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	revokedAt := time.Date(2025, 11, 20, 9, 30, 0, 0, time.UTC)
	event := domain.SessionsRevokedEvent{
		EventID:   "event-123",
		UserID:    "user-456",
		RevokedAt: revokedAt,
		RevokedBy: "admin-789",
		Reason:    "credential_rotation",
		Metadata:  map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishSessionsRevoked(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionsRevoked returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "auth.sessions.revoked" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		if msg.Key == nil {
			t.Fatal("expected message key for per-user ordering")
		}

		key, err := msg.Key.Encode()
		if err != nil {
			t.Fatalf("Key.Encode returned error: %v", err)
		}

		if string(key) != event.UserID {
			t.Fatalf("unexpected message key: %s", key)
		}

		var eventTypeHeader []byte
		for _, header := range msg.Headers {
			if string(header.Key) == "event_type" {
				eventTypeHeader = header.Value
			}
		}

		if string(eventTypeHeader) != "auth.sessions.revoked" {
			t.Fatalf("unexpected event_type header: %s", eventTypeHeader)
		}

		if !msg.Timestamp.Equal(revokedAt) {
			t.Fatalf("unexpected message timestamp: %s", msg.Timestamp)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "auth.sessions.revoked" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}

		if got := envelope["user_id"]; got != event.UserID {
			t.Fatalf("unexpected user_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}

		if timestamp != revokedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["user_id"]; got != event.UserID {
			t.Fatalf("unexpected payload.user_id: %v", got)
		}

		if got := payload["revoked_by"]; got != event.RevokedBy {
			t.Fatalf("unexpected revoked_by: %v", got)
		}

		if got := payload["reason"]; got != event.Reason {
			t.Fatalf("unexpected reason: %v", got)
		}

		metadata, ok := payload["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("metadata not a map: %T", payload["metadata"])
		}

		if metadata["source"] != "unit-test" {
			t.Fatalf("metadata did not round-trip: %v", metadata)
		}

		envelopeMetadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}

		if envelopeMetadata["service"] != "auth-service" {
			t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
		}

		if envelopeMetadata["environment"] != "test" {
			t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishRolesAssigned(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	assignedAt := time.Date(2025, 12, 2, 14, 15, 0, 0, time.UTC)
	event := domain.RolesAssignedEvent{
		EventID:    "evt-001",
		UserID:     "user-123",
		RoleID:     "role-1",
		RoleName:   "MANAGER",
		AssignedBy: "admin-user",
		AssignedAt: assignedAt,
		Metadata:   map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishRolesAssigned(context.Background(), event); err != nil {
		t.Fatalf("PublishRolesAssigned returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "auth.user.roles.assigned" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "auth.user.roles.assigned" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["role_id"]; got != event.RoleID {
			t.Fatalf("unexpected role_id: %v", got)
		}

		if got := payload["role_name"]; got != event.RoleName {
			t.Fatalf("unexpected role_name: %v", got)
		}

		if got := payload["assigned_by"]; got != event.AssignedBy {
			t.Fatalf("unexpected assigned_by: %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestTopicNameKeepsExistingPrefix(t *testing.T) {
	producer := &Producer{topicPrefix: "auth"}

	if got := producer.TopicName("auth.token.revoked"); got != "auth.token.revoked" {
		t.Fatalf("prefixed event type was rewritten: %s", got)
	}

	if got := producer.TopicName("token.revoked"); got != "auth.token.revoked" {
		t.Fatalf("unexpected topic name: %s", got)
	}
}
