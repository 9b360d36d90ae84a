package usecase

import (
	"context"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/logger"
)

const (
	passwordResetRateLimitScope = "password_reset_email"
	passwordChangeMethodReset   = "reset_link"
)

// RequestPasswordReset asks the provider to e-mail a reset link redirecting to the
// configured reset destination.
func (c *AuthController) RequestPasswordReset(ctx context.Context, email string) error {
	if c.disposed.Load() {
		return ErrControllerDisposed
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	if err := c.enforceRateLimit(ctx, passwordResetRateLimitScope, email, c.cfg.RateLimit.PasswordResetMaxAttempts); err != nil {
		c.observe(operationResetRequest, err)
		return err
	}

	redirectTo := c.cfg.Provider.ResetRedirectURL
	if err := c.provider.ResetPasswordForEmail(ctx, email, redirectTo); err != nil {
		classified := classifyProviderError(err)
		c.logger.Info("password reset request failed", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		c.observe(operationResetRequest, classified)
		return classified
	}

	c.observe(operationResetRequest, nil)
	c.publishResetRequested(ctx, email, redirectTo)
	return nil
}

// ValidateResetSession reports whether a session that may change the password is active.
// With strict recovery enabled the session must come from a recovery link.
func (c *AuthController) ValidateResetSession(ctx context.Context) (bool, error) {
	session, err := c.provider.GetSession(ctx)
	if err != nil {
		return false, classifyProviderError(err)
	}
	if session == nil {
		return false, nil
	}
	if c.cfg.Auth.StrictRecoverySession && !session.IsRecovery() {
		return false, nil
	}
	return true, nil
}

// CompletePasswordReset sets a new password for the account behind the active reset session.
// Local checks run before any provider call.
func (c *AuthController) CompletePasswordReset(ctx context.Context, newPassword, confirmPassword string) error {
	if c.disposed.Load() {
		return ErrControllerDisposed
	}

	if err := CheckPasswordConfirmation(newPassword, confirmPassword); err != nil {
		c.observe(operationResetComplete, err)
		return err
	}
	if err := c.passwords.Validate(newPassword); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
		c.observe(operationResetComplete, wrapped)
		return wrapped
	}

	active, err := c.ValidateResetSession(ctx)
	if err != nil {
		c.observe(operationResetComplete, err)
		return err
	}
	if !active {
		c.observe(operationResetComplete, ErrInvalidResetSession)
		return ErrInvalidResetSession
	}

	principal, err := c.provider.UpdateUser(ctx, port.UserAttributes{Password: newPassword})
	if err != nil {
		classified := classifyProviderError(err)
		c.logger.Info("password update rejected", zap.Error(err))
		c.observe(operationResetComplete, classified)
		return classified
	}

	c.observe(operationResetComplete, nil)
	if principal != nil {
		c.publishPasswordChanged(ctx, principal.ID)
	}
	return nil
}

// CheckPasswordConfirmation is the local mismatch check shared by sign-up and reset forms.
func CheckPasswordConfirmation(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

func (c *AuthController) publishResetRequested(ctx context.Context, email, redirectTo string) {
	if c.events == nil {
		return
	}
	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		MaskedDestination: logger.MaskEmail(email),
		RedirectTo:        redirectTo,
		RequestedAt:       c.now().UTC(),
	}
	if err := c.events.PublishPasswordResetRequested(ctx, event); err != nil {
		c.logger.Warn("publish password reset requested failed", zap.Error(err))
	}
}

func (c *AuthController) publishPasswordChanged(ctx context.Context, userID string) {
	if c.events == nil || userID == "" {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		ChangedAt: c.now().UTC(),
		Method:    passwordChangeMethodReset,
	}
	if err := c.events.PublishPasswordChanged(ctx, event); err != nil {
		c.logger.Warn("publish password changed event failed", zap.String("user_id", userID), zap.Error(err))
	}
}
