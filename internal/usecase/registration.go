package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/logger"
)

// CallbackParams are the query parameters the provider appends to e-mail links.
type CallbackParams struct {
	Code             string
	ErrorCode        string
	ErrorDescription string
}

// CallbackResult describes a confirmed link.
type CallbackResult struct {
	Identity domain.Identity
	// Recovery is true when the link was a password recovery link; the caller should show the reset form.
	Recovery bool
}

// ResendConfirmation asks the provider to resend the sign-up confirmation e-mail.
func (c *AuthController) ResendConfirmation(ctx context.Context, email string) error {
	if c.disposed.Load() {
		return ErrControllerDisposed
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	if err := c.provider.Resend(ctx, port.ResendSignup, email); err != nil {
		classified := classifyProviderError(err)
		c.logger.Info("resend confirmation failed", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		c.observe(operationResend, classified)
		return classified
	}

	c.observe(operationResend, nil)
	return nil
}

// ConfirmFromCallback exchanges the one-time code from a confirmation or recovery link for a
// session and authenticates the store with it.
func (c *AuthController) ConfirmFromCallback(ctx context.Context, params CallbackParams) (*CallbackResult, error) {
	if c.disposed.Load() {
		return nil, ErrControllerDisposed
	}

	if params.ErrorCode != "" || params.ErrorDescription != "" {
		reason := strings.TrimSpace(params.ErrorDescription)
		if reason == "" {
			reason = params.ErrorCode
		}
		err := fmt.Errorf("%w: %s", ErrUnexpectedProviderResponse, reason)
		c.observe(operationConfirm, err)
		return nil, err
	}

	code := strings.TrimSpace(params.Code)
	if code == "" {
		err := fmt.Errorf("%w: invalid confirmation link", ErrUnexpectedProviderResponse)
		c.observe(operationConfirm, err)
		return nil, err
	}

	session, err := c.provider.ExchangeCodeForSession(ctx, code)
	if err != nil {
		classified := classifyProviderError(err)
		if classified == err {
			classified = fmt.Errorf("%w: %s", ErrUnexpectedProviderResponse, ProviderMessage(err))
		}
		c.logger.Info("code exchange failed", zap.Error(err))
		c.observe(operationConfirm, classified)
		return nil, classified
	}
	if session == nil || strings.TrimSpace(session.User.ID) == "" {
		c.observe(operationConfirm, ErrUnexpectedProviderResponse)
		return nil, fmt.Errorf("%w: code exchange returned no principal", ErrUnexpectedProviderResponse)
	}

	identity := domain.NewIdentity(session.User)
	if !c.applyAuthenticated(identity) {
		return nil, ErrControllerDisposed
	}
	c.observe(operationConfirm, nil)

	return &CallbackResult{Identity: identity, Recovery: session.IsRecovery()}, nil
}
