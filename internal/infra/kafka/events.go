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

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types; the configured topic prefix is prepended to form the topic name.
const (
	EventSignedIn               = "auth.signed_in"
	EventSignedOut              = "auth.signed_out"
	EventUserRegistered         = "user.registered"
	EventPasswordResetRequested = "user.password.reset_requested"
	EventPasswordChanged        = "user.password.changed"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
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
		p.logger.Debug("event queued", zap.String("event_type", eventType), zap.String("event_id", id))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSignedIn publishes auth.signed_in events.
func (p *EventPublisher) PublishSignedIn(ctx context.Context, event domain.SignedInEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		Email      string         `json:"email"`
		SignedInAt time.Time      `json:"signed_in_at"`
		Method     string         `json:"method"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		Email:      event.Email,
		SignedInAt: event.SignedInAt.UTC(),
		Method:     event.Method,
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventSignedIn, event.UserID, event.SignedInAt, payload)
}

// PublishSignedOut publishes auth.signed_out events.
func (p *EventPublisher) PublishSignedOut(ctx context.Context, event domain.SignedOutEvent) error {
	payload := struct {
		UserID      string    `json:"user_id,omitempty"`
		SignedOutAt time.Time `json:"signed_out_at"`
		Reason      string    `json:"reason"`
		RemoteError string    `json:"remote_error,omitempty"`
	}{
		UserID:      event.UserID,
		SignedOutAt: event.SignedOutAt.UTC(),
		Reason:      event.Reason,
		RemoteError: event.RemoteError,
	}

	return p.publish(ctx, event.EventID, EventSignedOut, event.UserID, event.SignedOutAt, payload)
}

// PublishUserRegistered publishes user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID               string         `json:"user_id"`
		Email                string         `json:"email"`
		RegisteredAt         time.Time      `json:"registered_at"`
		RequiresConfirmation bool           `json:"requires_confirmation"`
		Metadata             map[string]any `json:"metadata,omitempty"`
	}{
		UserID:               event.UserID,
		Email:                event.Email,
		RegisteredAt:         event.RegisteredAt.UTC(),
		RequiresConfirmation: event.RequiresConfirmation,
		Metadata:             event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventUserRegistered, event.UserID, event.RegisteredAt, payload)
}

// PublishPasswordResetRequested publishes user.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		MaskedDestination string    `json:"masked_destination"`
		RedirectTo        string    `json:"redirect_to,omitempty"`
		RequestedAt       time.Time `json:"requested_at"`
	}{
		MaskedDestination: event.MaskedDestination,
		RedirectTo:        event.RedirectTo,
		RequestedAt:       event.RequestedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventPasswordResetRequested, "", event.RequestedAt, payload)
}

// PublishPasswordChanged publishes user.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		ChangedAt time.Time `json:"changed_at"`
		Method    string    `json:"method"`
	}{
		UserID:    event.UserID,
		ChangedAt: event.ChangedAt.UTC(),
		Method:    event.Method,
	}

	return p.publish(ctx, event.EventID, EventPasswordChanged, event.UserID, event.ChangedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
