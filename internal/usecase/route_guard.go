package usecase

import "github.com/albrthuynh/NBAIQ/internal/core/domain"

// Surface is the top-level application surface selected for a session state.
type Surface int

const (
	// SurfaceLoading is shown while restoration is outstanding.
	SurfaceLoading Surface = iota
	// SurfaceEntry is the login/sign-up flow.
	SurfaceEntry
	// SurfaceProtected is the authenticated application.
	SurfaceProtected
)

// String returns the surface name used on the wire.
func (s Surface) String() string {
	switch s {
	case SurfaceLoading:
		return "loading"
	case SurfaceEntry:
		return "entry"
	case SurfaceProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// SelectSurface maps a session state to the surface that may be shown.
// The protected surface is selected only for an authenticated state.
func SelectSurface(state domain.SessionState) Surface {
	switch state.Tag() {
	case domain.SessionAuthenticated:
		return SurfaceProtected
	case domain.SessionUnauthenticated:
		return SurfaceEntry
	default:
		return SurfaceLoading
	}
}

// RouteGuard re-evaluates the surface from a SessionStore.
type RouteGuard struct {
	store *SessionStore
}

// NewRouteGuard binds a guard to store.
func NewRouteGuard(store *SessionStore) *RouteGuard {
	return &RouteGuard{store: store}
}

// Current returns the surface for the store's current state.
func (g *RouteGuard) Current() Surface {
	return SelectSurface(g.store.State())
}

// Evaluate reads the store once and returns the state with its surface.
func (g *RouteGuard) Evaluate() (Surface, domain.SessionState) {
	state := g.store.State()
	return SelectSurface(state), state
}

// Watch calls fn with the surface after every store transition. The returned func stops watching.
func (g *RouteGuard) Watch(fn func(Surface)) func() {
	return g.store.Subscribe(func(state domain.SessionState) {
		fn(SelectSurface(state))
	})
}
