package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/config"
	"github.com/albrthuynh/NBAIQ/internal/repository"
)

var errUnexpectedCall = errors.New("unexpected call")

type stubProvider struct {
	mu    sync.Mutex
	calls map[string]int

	signIn     func(ctx context.Context, email, password string) (*domain.ProviderSession, error)
	signUp     func(ctx context.Context, email, password string, metadata map[string]any) (*port.SignUpResult, error)
	signOutErr error
	getSession func(ctx context.Context) (*domain.ProviderSession, error)
	resetErr   error
	updateUser func(ctx context.Context, attrs port.UserAttributes) (*domain.Principal, error)
	resendErr  error
	exchange   func(ctx context.Context, code string) (*domain.ProviderSession, error)

	lastRedirect string
	lastMetadata map[string]any
	lastResend   port.ResendKind

	events       chan domain.ProviderEvent
	unsubscribed atomic.Bool
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		calls:  make(map[string]int),
		events: make(chan domain.ProviderEvent, 16),
	}
}

func (p *stubProvider) record(name string) {
	p.mu.Lock()
	p.calls[name]++
	p.mu.Unlock()
}

func (p *stubProvider) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *stubProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.ProviderSession, error) {
	p.record("sign_in")
	if p.signIn == nil {
		return nil, errUnexpectedCall
	}
	return p.signIn(ctx, email, password)
}

func (p *stubProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*port.SignUpResult, error) {
	p.record("sign_up")
	p.mu.Lock()
	p.lastMetadata = metadata
	p.mu.Unlock()
	if p.signUp == nil {
		return nil, errUnexpectedCall
	}
	return p.signUp(ctx, email, password, metadata)
}

func (p *stubProvider) SignOut(context.Context) error {
	p.record("sign_out")
	return p.signOutErr
}

func (p *stubProvider) GetSession(ctx context.Context) (*domain.ProviderSession, error) {
	p.record("get_session")
	if p.getSession == nil {
		return nil, nil
	}
	return p.getSession(ctx)
}

func (p *stubProvider) Subscribe() (<-chan domain.ProviderEvent, func()) {
	p.record("subscribe")
	return p.events, func() { p.unsubscribed.Store(true) }
}

func (p *stubProvider) ResetPasswordForEmail(_ context.Context, _ string, redirectTo string) error {
	p.record("reset_password")
	p.mu.Lock()
	p.lastRedirect = redirectTo
	p.mu.Unlock()
	return p.resetErr
}

func (p *stubProvider) UpdateUser(ctx context.Context, attrs port.UserAttributes) (*domain.Principal, error) {
	p.record("update_user")
	if p.updateUser == nil {
		return nil, errUnexpectedCall
	}
	return p.updateUser(ctx, attrs)
}

func (p *stubProvider) Resend(_ context.Context, kind port.ResendKind, _ string) error {
	p.record("resend")
	p.mu.Lock()
	p.lastResend = kind
	p.mu.Unlock()
	return p.resendErr
}

func (p *stubProvider) ExchangeCodeForSession(ctx context.Context, code string) (*domain.ProviderSession, error) {
	p.record("exchange")
	if p.exchange == nil {
		return nil, errUnexpectedCall
	}
	return p.exchange(ctx, code)
}

type stubProfileStore struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	getErr   error
	created  []domain.Profile
	tokens   []string
}

func (s *stubProfileStore) GetProfile(_ context.Context, accessToken, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, accessToken)
	if s.getErr != nil {
		return nil, s.getErr
	}
	if profile, ok := s.profiles[userID]; ok {
		copy := profile
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubProfileStore) CreateProfile(_ context.Context, _ string, profile domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profiles == nil {
		s.profiles = make(map[string]domain.Profile)
	}
	s.profiles[profile.ID] = profile
	s.created = append(s.created, profile)
	return &profile, nil
}

type recordingPublisher struct {
	mu         sync.Mutex
	signedIn   []domain.SignedInEvent
	signedOut  []domain.SignedOutEvent
	registered []domain.UserRegisteredEvent
	resets     []domain.PasswordResetRequestedEvent
	changed    []domain.PasswordChangedEvent
	err        error
}

func (p *recordingPublisher) PublishSignedIn(_ context.Context, event domain.SignedInEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedIn = append(p.signedIn, event)
	return p.err
}

func (p *recordingPublisher) PublishSignedOut(_ context.Context, event domain.SignedOutEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedOut = append(p.signedOut, event)
	return p.err
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return p.err
}

func (p *recordingPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets = append(p.resets, event)
	return p.err
}

func (p *recordingPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, event)
	return p.err
}

type recordingObserver struct {
	mu         sync.Mutex
	operations []string
	states     []domain.SessionTag
}

func (o *recordingObserver) ObserveOperation(operation, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations = append(o.operations, operation+":"+outcome)
}

func (o *recordingObserver) ObserveState(tag domain.SessionTag) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, tag)
}

type memoryRateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newMemoryRateLimitStore() *memoryRateLimitStore {
	return &memoryRateLimitStore{attempts: make(map[string][]time.Time)}
}

func (s *memoryRateLimitStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := reference.Add(-window)
	kept := s.attempts[identifier][:0]
	for _, at := range s.attempts[identifier] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	s.attempts[identifier] = kept
	return nil
}

func (s *memoryRateLimitStore) CountAttempts(_ context.Context, identifier string, _ time.Duration, _ time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts[identifier]), nil
}

func (s *memoryRateLimitStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[identifier] = append(s.attempts[identifier], at)
	return nil
}

func (s *memoryRateLimitStore) OldestAttempt(_ context.Context, identifier string, _ time.Duration, _ time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.attempts[identifier]) == 0 {
		return time.Time{}, false, nil
	}
	return s.attempts[identifier][0], true, nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Provider: config.ProviderSettings{
			EmailRedirectURL: "http://localhost:8080/auth/callback",
			ResetRedirectURL: "http://localhost:8080/auth/callback?next=reset",
		},
		Auth: config.AuthSettings{MinPasswordLength: 8},
		RateLimit: config.RateLimitSettings{
			WindowDuration:           time.Minute,
			LoginMaxAttempts:         3,
			PasswordResetMaxAttempts: 2,
		},
	}
}

func testSession(id, email string, metadata map[string]any) *domain.ProviderSession {
	return &domain.ProviderSession{
		AccessToken:  "access-" + id,
		RefreshToken: "refresh-" + id,
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domain.Principal{ID: id, Email: email, Metadata: metadata},
	}
}

func waitForTag(t *testing.T, store *SessionStore, tag domain.SessionTag) domain.SessionState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state := store.State(); state.Tag() == tag {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s, last state %s", tag, store.State())
	return domain.SessionState{}
}
