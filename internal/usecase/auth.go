package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/config"
	"github.com/albrthuynh/NBAIQ/internal/infra/logger"
	"github.com/albrthuynh/NBAIQ/internal/infra/security"
)

var (
	// ErrInvalidCredentials indicates the provider rejected the e-mail/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationFailed indicates the provider rejected a sign-up. See RegistrationError for the reason.
	ErrRegistrationFailed = errors.New("registration failed")
	// ErrProviderUnavailable indicates a network or availability failure reaching the identity provider.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrInvalidResetSession indicates a password reset was attempted without an active reset session.
	ErrInvalidResetSession = errors.New("invalid or expired reset link")
	// ErrPasswordMismatch indicates the password and its confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrUnexpectedProviderResponse indicates the provider answered with something unusable.
	ErrUnexpectedProviderResponse = errors.New("unexpected identity provider response")
	// ErrPasswordTooWeak indicates the password fails the local length or strength policy.
	ErrPasswordTooWeak = errors.New("password does not meet requirements")
	// ErrOperationPending indicates a login, sign-up or logout is already in flight.
	ErrOperationPending = errors.New("operation already in progress")
	// ErrControllerDisposed indicates the controller was torn down.
	ErrControllerDisposed = errors.New("auth controller disposed")
	// ErrRateLimited indicates too many attempts within the configured window.
	ErrRateLimited = errors.New("too many attempts")
)

const (
	operationRestore       = "restore"
	operationLogin         = "login"
	operationSignup        = "signup"
	operationLogout        = "logout"
	operationResend        = "resend_confirmation"
	operationConfirm       = "confirm_callback"
	operationResetRequest  = "password_reset_request"
	operationResetComplete = "password_reset_complete"

	outcomeSuccess = "success"

	loginRateLimitScope = "auth_login_email"
	signInMethod        = "password"
)

// RegistrationError carries the provider's reason for rejecting a sign-up.
type RegistrationError struct {
	Code   string
	Reason string
}

// Error implements error.
func (e *RegistrationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Reason == "" {
		return ErrRegistrationFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRegistrationFailed.Error(), e.Reason)
}

// Unwrap exposes ErrRegistrationFailed to errors.Is.
func (e *RegistrationError) Unwrap() error {
	return ErrRegistrationFailed
}

// SignupResult reports the outcome of a sign-up that the provider accepted.
type SignupResult struct {
	Identity             domain.Identity
	RequiresConfirmation bool
}

// AuthController performs authentication actions against the identity provider and is the
// only writer of the SessionStore.
type AuthController struct {
	cfg        *config.AppConfig
	provider   port.IdentityProvider
	store      *SessionStore
	profiles   *ProfileSync
	events     port.EventPublisher
	observer   port.OperationObserver
	rateLimits port.RateLimitStore
	passwords  *security.PasswordPolicy
	logger     *zap.Logger
	now        func() time.Time

	pending  atomic.Bool
	disposed atomic.Bool
	// applyMu makes the disposed check and the store write atomic with respect to Dispose.
	applyMu sync.RWMutex

	lifecycleMu sync.Mutex
	started     bool
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewAuthController constructs a controller bound to provider and store.
func NewAuthController(cfg *config.AppConfig, provider port.IdentityProvider, store *SessionStore, logger *zap.Logger) *AuthController {
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	if store == nil {
		store = NewSessionStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthController{
		cfg:       cfg,
		provider:  provider,
		store:     store,
		passwords: security.NewPasswordPolicy(cfg.Auth.MinPasswordLength, cfg.Auth.MinPasswordScore),
		logger:    logger,
		now:       time.Now,
	}
}

// WithProfileSync ensures a profile record exists after each successful login.
func (c *AuthController) WithProfileSync(profiles *ProfileSync) *AuthController {
	c.profiles = profiles
	return c
}

// WithEventPublisher publishes audit events for completed operations.
func (c *AuthController) WithEventPublisher(events port.EventPublisher) *AuthController {
	c.events = events
	return c
}

// WithObserver reports operation outcomes.
func (c *AuthController) WithObserver(observer port.OperationObserver) *AuthController {
	c.observer = observer
	return c
}

// WithRateLimitStore enables per-address login and reset throttling.
func (c *AuthController) WithRateLimitStore(store port.RateLimitStore) *AuthController {
	c.rateLimits = store
	return c
}

// WithClock overrides the time source (tests).
func (c *AuthController) WithClock(clock func() time.Time) *AuthController {
	if clock != nil {
		c.now = clock
	}
	return c
}

// Store exposes the session store for read access.
func (c *AuthController) Store() *SessionStore {
	return c.store
}

// MinPasswordLength reports the local minimum enforced on sign-up and reset.
func (c *AuthController) MinPasswordLength() int {
	return c.passwords.MinLength()
}

// Pending reports whether a login, sign-up or logout is in flight.
func (c *AuthController) Pending() bool {
	return c.pending.Load()
}

// Start subscribes to provider notifications and then restores any existing session.
// Restoration runs once; later calls return nil without side effects.
func (c *AuthController) Start(ctx context.Context) error {
	if c.disposed.Load() {
		return ErrControllerDisposed
	}

	c.lifecycleMu.Lock()
	if c.disposed.Load() {
		c.lifecycleMu.Unlock()
		return ErrControllerDisposed
	}
	if c.started {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.started = true

	listenCtx, cancel := context.WithCancel(context.Background())
	events, unsubscribe := c.provider.Subscribe()
	c.cancel = cancel
	c.unsubscribe = unsubscribe
	c.wg.Add(1)
	go c.listen(listenCtx, events)
	c.lifecycleMu.Unlock()

	return c.restore(ctx)
}

// restore resolves the Unknown state. Any failure resolves to Unauthenticated so the
// application never stays on the loading surface.
func (c *AuthController) restore(ctx context.Context) error {
	session, err := c.provider.GetSession(ctx)
	if err != nil {
		classified := classifyProviderError(err)
		c.logger.Warn("session restoration failed", zap.Error(err))
		c.applyUnauthenticated()
		c.observe(operationRestore, classified)
		return classified
	}

	if session == nil {
		c.applyUnauthenticated()
		c.observe(operationRestore, nil)
		return nil
	}
	if strings.TrimSpace(session.User.ID) == "" {
		c.logger.Warn("restored session carries no principal")
		c.applyUnauthenticated()
		c.observe(operationRestore, ErrUnexpectedProviderResponse)
		return ErrUnexpectedProviderResponse
	}

	identity := domain.NewIdentity(session.User)
	c.applyAuthenticated(identity)
	c.observe(operationRestore, nil)
	c.logger.Debug("session restored", zap.String("user_id", identity.ID))
	return nil
}

func (c *AuthController) listen(ctx context.Context, events <-chan domain.ProviderEvent) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.reconcile(event)
		}
	}
}

// reconcile applies a provider notification to the store. Notifications always win over
// whatever state the store holds (last write wins).
func (c *AuthController) reconcile(event domain.ProviderEvent) {
	switch event.Kind {
	case domain.ProviderEventSignedIn, domain.ProviderEventTokenRefreshed:
		if event.Session == nil || strings.TrimSpace(event.Session.User.ID) == "" {
			c.logger.Debug("provider notification without principal ignored", zap.String("kind", string(event.Kind)))
			return
		}
		c.applyAuthenticated(domain.NewIdentity(event.Session.User))
	case domain.ProviderEventSignedOut:
		c.applyUnauthenticated()
	default:
		c.logger.Debug("provider notification ignored", zap.String("kind", string(event.Kind)))
	}
}

// Login authenticates with e-mail and password. On success the store holds the new identity
// before Login returns. On failure the store is left untouched.
func (c *AuthController) Login(ctx context.Context, email, password string) (domain.Identity, error) {
	if c.disposed.Load() {
		return domain.Identity{}, ErrControllerDisposed
	}
	if !c.pending.CompareAndSwap(false, true) {
		return domain.Identity{}, ErrOperationPending
	}
	defer c.pending.Store(false)

	email = strings.TrimSpace(email)
	if err := c.enforceRateLimit(ctx, loginRateLimitScope, email, c.cfg.RateLimit.LoginMaxAttempts); err != nil {
		c.observe(operationLogin, err)
		return domain.Identity{}, err
	}

	session, err := c.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		classified := classifyLoginError(err)
		c.logger.Info("login rejected", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		c.observe(operationLogin, classified)
		return domain.Identity{}, classified
	}
	if session == nil || strings.TrimSpace(session.User.ID) == "" {
		c.observe(operationLogin, ErrUnexpectedProviderResponse)
		return domain.Identity{}, fmt.Errorf("%w: sign-in returned no principal", ErrUnexpectedProviderResponse)
	}

	identity := domain.NewIdentity(session.User)
	if !c.applyAuthenticated(identity) {
		return domain.Identity{}, ErrControllerDisposed
	}
	c.observe(operationLogin, nil)

	if c.profiles != nil {
		if _, err := c.profiles.EnsureProfile(ctx, identity, session.AccessToken); err != nil {
			c.logger.Warn("profile sync failed", zap.String("user_id", identity.ID), zap.Error(err))
		}
	}
	c.publishSignedIn(ctx, identity)

	return identity, nil
}

// Signup registers a new account. It never changes the session state: confirmation-pending
// accounts stay unauthenticated, and auto-confirmed ones are picked up from the provider's
// SIGNED_IN notification.
func (c *AuthController) Signup(ctx context.Context, firstName, lastName, email, password string) (*SignupResult, error) {
	if c.disposed.Load() {
		return nil, ErrControllerDisposed
	}
	if !c.pending.CompareAndSwap(false, true) {
		return nil, ErrOperationPending
	}
	defer c.pending.Store(false)

	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.TrimSpace(email)

	if err := c.passwords.Validate(password, email, firstName, lastName); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
		c.observe(operationSignup, wrapped)
		return nil, wrapped
	}

	metadata := map[string]any{
		domain.MetadataFirstName: firstName,
		domain.MetadataLastName:  lastName,
	}

	result, err := c.provider.SignUp(ctx, email, password, metadata)
	if err != nil {
		classified := classifySignupError(err)
		c.logger.Info("signup rejected", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		c.observe(operationSignup, classified)
		return nil, classified
	}
	if result == nil {
		c.observe(operationSignup, ErrUnexpectedProviderResponse)
		return nil, fmt.Errorf("%w: sign-up returned no user", ErrUnexpectedProviderResponse)
	}

	out := &SignupResult{
		Identity:             domain.NewIdentity(result.User),
		RequiresConfirmation: result.Session == nil,
	}
	c.observe(operationSignup, nil)
	c.publishRegistered(ctx, out)

	return out, nil
}

// Logout signs out at the provider and always leaves the store Unauthenticated, even when the
// provider call fails. The remote failure is logged, not returned.
func (c *AuthController) Logout(ctx context.Context) error {
	if c.disposed.Load() {
		return ErrControllerDisposed
	}
	if c.pending.CompareAndSwap(false, true) {
		defer c.pending.Store(false)
	}

	var userID string
	if identity, ok := c.store.State().Identity(); ok {
		userID = identity.ID
	}

	remoteErr := c.provider.SignOut(ctx)
	if remoteErr != nil {
		c.logger.Warn("provider sign-out failed; clearing local session", zap.Error(remoteErr))
	}

	c.applyUnauthenticated()
	c.observe(operationLogout, nil)
	c.publishSignedOut(ctx, userID, "user_logout", remoteErr)

	return nil
}

// Dispose stops reacting to provider notifications and releases every store subscription.
// No state change is applied after Dispose returns. Safe to call more than once.
func (c *AuthController) Dispose() {
	c.applyMu.Lock()
	first := c.disposed.CompareAndSwap(false, true)
	c.applyMu.Unlock()
	if !first {
		return
	}

	c.lifecycleMu.Lock()
	cancel, unsubscribe := c.cancel, c.unsubscribe
	c.lifecycleMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.store.Close()
}

// Disposed reports whether Dispose was called.
func (c *AuthController) Disposed() bool {
	return c.disposed.Load()
}

func (c *AuthController) applyAuthenticated(identity domain.Identity) bool {
	c.applyMu.RLock()
	defer c.applyMu.RUnlock()
	if c.disposed.Load() {
		return false
	}
	c.store.setAuthenticated(identity)
	return true
}

func (c *AuthController) applyUnauthenticated() bool {
	c.applyMu.RLock()
	defer c.applyMu.RUnlock()
	if c.disposed.Load() {
		return false
	}
	c.store.setUnauthenticated()
	return true
}

func (c *AuthController) observe(operation string, err error) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveOperation(operation, outcomeLabel(err))
}

func (c *AuthController) publishSignedIn(ctx context.Context, identity domain.Identity) {
	if c.events == nil {
		return
	}
	event := domain.SignedInEvent{
		EventID:    uuid.NewString(),
		UserID:     identity.ID,
		Email:      identity.Email,
		SignedInAt: c.now().UTC(),
		Method:     signInMethod,
	}
	if err := c.events.PublishSignedIn(ctx, event); err != nil {
		c.logger.Warn("publish signed in event failed", zap.String("user_id", identity.ID), zap.Error(err))
	}
}

func (c *AuthController) publishSignedOut(ctx context.Context, userID, reason string, remoteErr error) {
	if c.events == nil || userID == "" {
		return
	}
	event := domain.SignedOutEvent{
		EventID:     uuid.NewString(),
		UserID:      userID,
		SignedOutAt: c.now().UTC(),
		Reason:      reason,
	}
	if remoteErr != nil {
		event.RemoteError = remoteErr.Error()
	}
	if err := c.events.PublishSignedOut(ctx, event); err != nil {
		c.logger.Warn("publish signed out event failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (c *AuthController) publishRegistered(ctx context.Context, result *SignupResult) {
	if c.events == nil || result.Identity.ID == "" {
		return
	}
	event := domain.UserRegisteredEvent{
		EventID:              uuid.NewString(),
		UserID:               result.Identity.ID,
		Email:                result.Identity.Email,
		RegisteredAt:         c.now().UTC(),
		RequiresConfirmation: result.RequiresConfirmation,
		Metadata: map[string]any{
			"full_name": result.Identity.FullName(),
		},
	}
	if err := c.events.PublishUserRegistered(ctx, event); err != nil {
		c.logger.Warn("publish user registered event failed", zap.String("user_id", event.UserID), zap.Error(err))
	}
}
