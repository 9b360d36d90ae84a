package domain

import "time"

// ProviderEventKind enumerates session-change notifications emitted by the identity provider.
type ProviderEventKind string

const (
	ProviderEventInitialSession   ProviderEventKind = "INITIAL_SESSION"
	ProviderEventSignedIn         ProviderEventKind = "SIGNED_IN"
	ProviderEventSignedOut        ProviderEventKind = "SIGNED_OUT"
	ProviderEventTokenRefreshed   ProviderEventKind = "TOKEN_REFRESHED"
	ProviderEventUserUpdated      ProviderEventKind = "USER_UPDATED"
	ProviderEventPasswordRecovery ProviderEventKind = "PASSWORD_RECOVERY"
)

// ProviderEvent is a single notification on the provider's session-change stream.
// Session is nil when the event carries no principal.
type ProviderEvent struct {
	Kind    ProviderEventKind
	Session *ProviderSession
	At      time.Time
}

// SignedInEvent represents the payload for auth.signed_in messages.
type SignedInEvent struct {
	EventID    string
	UserID     string
	Email      string
	SignedInAt time.Time
	Method     string
	Metadata   map[string]any
}

// SignedOutEvent represents the payload for auth.signed_out messages.
type SignedOutEvent struct {
	EventID     string
	UserID      string
	SignedOutAt time.Time
	Reason      string
	RemoteError string
}

// UserRegisteredEvent represents the payload for user.registered messages.
type UserRegisteredEvent struct {
	EventID              string
	UserID               string
	Email                string
	RegisteredAt         time.Time
	RequiresConfirmation bool
	Metadata             map[string]any
}

// PasswordResetRequestedEvent represents the payload for user.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	MaskedDestination string
	RedirectTo        string
	RequestedAt       time.Time
}

// PasswordChangedEvent represents the payload for user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	Method    string
}

// SessionRevokedEvent is consumed from the revocation topic when a session is ended elsewhere.
type SessionRevokedEvent struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	RevokedAt time.Time `json:"revoked_at"`
}
