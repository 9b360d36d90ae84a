package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.uber.org/zap/zaptest"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/infra/config"
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

func newTestPublisher(t *testing.T, async sarama.AsyncProducer) *EventPublisher {
	t.Helper()
	producer := newProducer(async, config.KafkaSettings{TopicPrefix: "nbaiq"}, zaptest.NewLogger(t))
	return NewEventPublisher(producer, config.AppSettings{Name: "nbaiq-web", Env: "test"}, zaptest.NewLogger(t))
}

func decodeEnvelope(t *testing.T, msg *sarama.ProducerMessage) map[string]any {
	t.Helper()
	bytes, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("Value.Encode returned error: %v", err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(bytes, &envelope); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	return envelope
}

func TestPublishSignedIn(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	signedInAt := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)
	event := domain.SignedInEvent{
		EventID:    "event-123",
		UserID:     "user-789",
		Email:      "m***@example.com",
		SignedInAt: signedInAt,
		Method:     "password",
	}

	if err := publisher.PublishSignedIn(context.Background(), event); err != nil {
		t.Fatalf("PublishSignedIn returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "nbaiq.auth.signed_in" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != event.UserID {
			t.Fatalf("expected message keyed by user id, got %q", key)
		}

		envelope := decodeEnvelope(t, msg)
		if envelope["event_id"] != "event-123" || envelope["event_type"] != EventSignedIn {
			t.Fatalf("unexpected envelope header: %v", envelope)
		}
		if envelope["timestamp"] != signedInAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %v", envelope["timestamp"])
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}
		if payload["method"] != "password" || payload["user_id"] != event.UserID {
			t.Fatalf("unexpected payload: %v", payload)
		}

		metadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}
		if metadata["service"] != "nbaiq-web" || metadata["environment"] != "test" {
			t.Fatalf("unexpected metadata: %v", metadata)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishPasswordResetRequestedGeneratesID(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	event := domain.PasswordResetRequestedEvent{
		MaskedDestination: "m***@example.com",
		RedirectTo:        "http://localhost:8080/auth/callback",
	}
	if err := publisher.PublishPasswordResetRequested(context.Background(), event); err != nil {
		t.Fatalf("PublishPasswordResetRequested returned error: %v", err)
	}

	msg := <-asyncProducer.input
	if msg.Topic != "nbaiq.user.password.reset_requested" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if msg.Key != nil {
		t.Fatalf("reset requests carry no user key")
	}
	envelope := decodeEnvelope(t, msg)
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatalf("expected generated event id")
	}
	if _, ok := envelope["user_id"]; ok {
		t.Fatalf("user_id must be omitted when unknown")
	}
}

func TestPublishHonoursContextCancellation(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	asyncProducer.input <- &sarama.ProducerMessage{}
	publisher := newTestPublisher(t, asyncProducer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishSignedOut(ctx, domain.SignedOutEvent{UserID: "user-1", Reason: "user_initiated"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPublisherWithSaramaMock(t *testing.T) {
	mockProducer := mocks.NewAsyncProducer(t, nil)
	mockProducer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "nbaiq.user.registered" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		return nil
	})
	mockProducer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "nbaiq.user.password.changed" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		return nil
	})

	producer := newProducer(mockProducer, config.KafkaSettings{TopicPrefix: "nbaiq"}, zaptest.NewLogger(t))
	publisher := NewEventPublisher(producer, config.AppSettings{Name: "nbaiq-web"}, zaptest.NewLogger(t))

	if err := publisher.PublishUserRegistered(context.Background(), domain.UserRegisteredEvent{UserID: "user-1", RequiresConfirmation: true}); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}
	if err := publisher.PublishPasswordChanged(context.Background(), domain.PasswordChangedEvent{UserID: "user-1", Method: "reset_link"}); err != nil {
		t.Fatalf("PublishPasswordChanged returned error: %v", err)
	}

	if err := producer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestTopicName(t *testing.T) {
	cases := map[string]struct {
		prefix string
		want   string
	}{
		"prefixed":     {prefix: "nbaiq", want: "nbaiq.auth.signed_in"},
		"no prefix":    {prefix: "", want: "auth.signed_in"},
		"already full": {prefix: "auth", want: "auth.signed_in"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := topicName(tc.prefix, EventSignedIn); got != tc.want {
				t.Fatalf("topicName = %q, want %q", got, tc.want)
			}
		})
	}
}
