package port

import (
	"context"
	"errors"
	"fmt"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
)

// ErrProviderUnreachable signals a transport-level failure (dial, timeout, 5xx) talking to the identity provider.
var ErrProviderUnreachable = errors.New("identity provider unreachable")

// ProviderError is a rejection returned by the identity provider.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

// Error implements error.
func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("identity provider (%d): %s", e.Status, e.Message)
}

// ResendKind enumerates confirmation messages the provider can resend.
type ResendKind string

const (
	ResendSignup      ResendKind = "signup"
	ResendEmailChange ResendKind = "email_change"
)

// UserAttributes carries the fields accepted by UpdateUser.
type UserAttributes struct {
	Email    string
	Password string
	Data     map[string]any
}

// SignUpResult is returned by SignUp. Session is nil when confirmation is required.
type SignUpResult struct {
	User    domain.Principal
	Session *domain.ProviderSession
}

// IdentityProvider is the external collaborator that issues and validates credentials.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.ProviderSession, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error)
	SignOut(ctx context.Context) error
	// GetSession returns the current session or nil when none exists.
	GetSession(ctx context.Context) (*domain.ProviderSession, error)
	// Subscribe registers a session-change stream; the returned func releases it.
	Subscribe() (<-chan domain.ProviderEvent, func())
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateUser(ctx context.Context, attrs UserAttributes) (*domain.Principal, error)
	Resend(ctx context.Context, kind ResendKind, email string) error
	ExchangeCodeForSession(ctx context.Context, code string) (*domain.ProviderSession, error)
}

// LocalSessionRevoker drops the local session of a user whose session was ended elsewhere.
type LocalSessionRevoker interface {
	SignOutLocal(ctx context.Context, userID string) (bool, error)
}
