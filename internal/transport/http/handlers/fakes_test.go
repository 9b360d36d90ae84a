package handlers

import (
	"context"
	"sync"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/repository"
)

type fakeProvider struct {
	mu sync.Mutex

	signInSession *domain.ProviderSession
	signInErr     error
	signUpResult  *port.SignUpResult
	signUpErr     error
	signOutErr    error
	current       *domain.ProviderSession
	exchange      *domain.ProviderSession
	exchangeErr   error
	resetErr      error
	updateErr     error
	resendErr     error

	events chan domain.ProviderEvent
	calls  map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		events: make(chan domain.ProviderEvent, 8),
		calls:  make(map[string]int),
	}
}

func (p *fakeProvider) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[name]++
}

func (p *fakeProvider) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *fakeProvider) SignInWithPassword(context.Context, string, string) (*domain.ProviderSession, error) {
	p.record("sign_in")
	return p.signInSession, p.signInErr
}

func (p *fakeProvider) SignUp(context.Context, string, string, map[string]any) (*port.SignUpResult, error) {
	p.record("sign_up")
	return p.signUpResult, p.signUpErr
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.record("sign_out")
	return p.signOutErr
}

func (p *fakeProvider) GetSession(context.Context) (*domain.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *fakeProvider) Subscribe() (<-chan domain.ProviderEvent, func()) {
	return p.events, func() {}
}

func (p *fakeProvider) ResetPasswordForEmail(context.Context, string, string) error {
	p.record("reset")
	return p.resetErr
}

func (p *fakeProvider) UpdateUser(context.Context, port.UserAttributes) (*domain.Principal, error) {
	p.record("update_user")
	if p.updateErr != nil {
		return nil, p.updateErr
	}
	return &domain.Principal{ID: "user-1"}, nil
}

func (p *fakeProvider) Resend(context.Context, port.ResendKind, string) error {
	p.record("resend")
	return p.resendErr
}

func (p *fakeProvider) ExchangeCodeForSession(context.Context, string) (*domain.ProviderSession, error) {
	p.record("exchange")
	return p.exchange, p.exchangeErr
}

type memoryProfiles struct {
	mu   sync.Mutex
	rows map[string]domain.Profile
	err  error
}

func newMemoryProfiles() *memoryProfiles {
	return &memoryProfiles{rows: make(map[string]domain.Profile)}
}

func (m *memoryProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (m *memoryProfiles) CreateIfAbsent(_ context.Context, profile domain.Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[profile.ID]; ok {
		return false, nil
	}
	m.rows[profile.ID] = profile
	return true, nil
}
