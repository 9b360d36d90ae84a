package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload map[string]any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishSignedIn logs auth.signed_in events.
func (p *StubPublisher) PublishSignedIn(_ context.Context, event domain.SignedInEvent) error {
	p.logEvent(EventSignedIn, event.UserID, event.SignedInAt, map[string]any{
		"method": event.Method,
	})
	return nil
}

// PublishSignedOut logs auth.signed_out events.
func (p *StubPublisher) PublishSignedOut(_ context.Context, event domain.SignedOutEvent) error {
	p.logEvent(EventSignedOut, event.UserID, event.SignedOutAt, map[string]any{
		"reason":       event.Reason,
		"remote_error": event.RemoteError,
	})
	return nil
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent(EventUserRegistered, event.UserID, event.RegisteredAt, map[string]any{
		"requires_confirmation": event.RequiresConfirmation,
	})
	return nil
}

// PublishPasswordResetRequested logs user.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.logEvent(EventPasswordResetRequested, "", event.RequestedAt, map[string]any{
		"masked_destination": event.MaskedDestination,
		"redirect_to":        event.RedirectTo,
	})
	return nil
}

// PublishPasswordChanged logs user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent(EventPasswordChanged, event.UserID, event.ChangedAt, map[string]any{
		"method": event.Method,
	})
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
