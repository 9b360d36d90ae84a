package port

import (
	"context"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
)

// EventPublisher publishes audit events to the message bus.
type EventPublisher interface {
	PublishSignedIn(ctx context.Context, event domain.SignedInEvent) error
	PublishSignedOut(ctx context.Context, event domain.SignedOutEvent) error
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
}

// OperationObserver receives controller outcomes for metrics.
type OperationObserver interface {
	ObserveOperation(operation, outcome string)
	ObserveState(tag domain.SessionTag)
}
