package usecase

import (
	"sync"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
)

// SessionListener is invoked with the new state after every transition.
// Listeners run synchronously on the mutating goroutine and must not mutate the store.
type SessionListener func(state domain.SessionState)

// SessionStore is the single source of truth for the current session state.
// Reads are open to any component; mutation is restricted to the AuthController.
type SessionStore struct {
	mu        sync.RWMutex
	state     domain.SessionState
	listeners map[uint64]SessionListener
	nextID    uint64
	closed    bool

	// notifyMu serializes set-and-notify so listeners observe transitions in order.
	notifyMu sync.Mutex
	observer port.OperationObserver
}

// NewSessionStore returns a store in the Unknown state.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		state:     domain.Unknown(),
		listeners: make(map[uint64]SessionListener),
	}
}

// WithObserver reports every applied state to observer.
func (s *SessionStore) WithObserver(observer port.OperationObserver) *SessionStore {
	s.observer = observer
	if observer != nil {
		observer.ObserveState(s.State().Tag())
	}
	return s
}

// State returns the current state. Safe for concurrent use.
func (s *SessionStore) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn for every subsequent transition and returns an idempotent release func.
// Subscribing to a closed store is a no-op.
func (s *SessionStore) Subscribe(fn SessionListener) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// ListenerCount reports the number of live subscriptions.
func (s *SessionStore) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// Close releases every subscription. State stays readable.
func (s *SessionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = make(map[uint64]SessionListener)
}

func (s *SessionStore) setAuthenticated(identity domain.Identity) {
	s.apply(domain.Authenticated(identity))
}

func (s *SessionStore) setUnauthenticated() {
	s.apply(domain.Unauthenticated())
}

func (s *SessionStore) setRestoring() {
	s.apply(domain.Unknown())
}

func (s *SessionStore) apply(next domain.SessionState) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state = next
	listeners := make([]SessionListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.ObserveState(next.Tag())
	}
	for _, fn := range listeners {
		fn(next)
	}
}
