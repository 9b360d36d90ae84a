package domain

import (
	"strings"
	"time"
)

const (
	// PlaceholderFirstName is used when the provider carries no first name metadata.
	PlaceholderFirstName = "User"
	// PlaceholderLastName is used when the provider carries no last name metadata.
	PlaceholderLastName = ""

	// MetadataFirstName and MetadataLastName are the profile metadata keys written at sign-up.
	MetadataFirstName = "firstName"
	MetadataLastName  = "lastName"

	// AuthMethodRecovery marks a provider session minted from a password recovery link.
	AuthMethodRecovery = "recovery"
)

// Principal is the identity provider's view of an authenticated entity.
type Principal struct {
	ID               string
	Email            string
	Metadata         map[string]any
	EmailConfirmedAt *time.Time
	CreatedAt        time.Time
}

// ProviderSession is an active credential set issued by the identity provider.
type ProviderSession struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	AuthMethods  []string
	User         Principal
}

// Expired reports whether the access token is no longer usable at the supplied moment.
func (s ProviderSession) Expired(at time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !s.ExpiresAt.After(at)
}

// ExpiresWithin reports whether the access token expires inside the margin.
func (s ProviderSession) ExpiresWithin(at time.Time, margin time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !s.ExpiresAt.After(at.Add(margin))
}

// IsRecovery reports whether the session was issued for a password recovery flow.
func (s ProviderSession) IsRecovery() bool {
	for _, method := range s.AuthMethods {
		if strings.EqualFold(method, AuthMethodRecovery) {
			return true
		}
	}
	return false
}

// Identity is the normalized principal used by the rest of the application.
// Values are immutable; re-authentication replaces the whole value.
type Identity struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// NewIdentity normalizes a principal, defaulting absent name components.
func NewIdentity(p Principal) Identity {
	first := metadataString(p.Metadata, MetadataFirstName)
	if first == "" {
		first = PlaceholderFirstName
	}
	last := metadataString(p.Metadata, MetadataLastName)
	if last == "" {
		last = PlaceholderLastName
	}

	return Identity{
		ID:        p.ID,
		Email:     p.Email,
		FirstName: first,
		LastName:  last,
	}
}

// FullName joins the name components the way profile records store them.
func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
