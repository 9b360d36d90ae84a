package domain

import "fmt"

// SessionTag enumerates the three session states that gate the application surface.
type SessionTag int

const (
	// SessionUnknown is the initial state while session restoration is in flight.
	SessionUnknown SessionTag = iota
	// SessionAuthenticated holds a fully constructed Identity.
	SessionAuthenticated
	// SessionUnauthenticated means no session exists in this client.
	SessionUnauthenticated
)

// String returns the wire name of the tag.
func (t SessionTag) String() string {
	switch t {
	case SessionUnknown:
		return "unknown"
	case SessionAuthenticated:
		return "authenticated"
	case SessionUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("session_tag(%d)", int(t))
	}
}

// SessionState is a tagged union: the identity is present exactly when the tag is SessionAuthenticated.
type SessionState struct {
	tag      SessionTag
	identity Identity
}

// Unknown returns the restoring state.
func Unknown() SessionState {
	return SessionState{tag: SessionUnknown}
}

// Authenticated returns a state holding the supplied identity.
func Authenticated(identity Identity) SessionState {
	return SessionState{tag: SessionAuthenticated, identity: identity}
}

// Unauthenticated returns the signed-out state.
func Unauthenticated() SessionState {
	return SessionState{tag: SessionUnauthenticated}
}

// Tag reports which of the three states holds.
func (s SessionState) Tag() SessionTag {
	return s.tag
}

// Identity returns the identity and true when the state is authenticated.
func (s SessionState) Identity() (Identity, bool) {
	if s.tag != SessionAuthenticated {
		return Identity{}, false
	}
	return s.identity, true
}

// IsAuthenticated reports whether an identity is present.
func (s SessionState) IsAuthenticated() bool {
	return s.tag == SessionAuthenticated
}

// IsUnknown reports whether restoration is still outstanding.
func (s SessionState) IsUnknown() bool {
	return s.tag == SessionUnknown
}

// String renders the tag, with the identity id when present.
func (s SessionState) String() string {
	if s.tag == SessionAuthenticated {
		return fmt.Sprintf("%s(%s)", s.tag, s.identity.ID)
	}
	return s.tag.String()
}
