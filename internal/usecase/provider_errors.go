package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/port"
)

// RateLimitExceededError reports a throttled operation and when it may be retried.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

// Error implements error.
func (e *RateLimitExceededError) Error() string {
	if e == nil {
		return ""
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: retry after %s", ErrRateLimited.Error(), e.RetryAfter.Round(time.Second))
	}
	return ErrRateLimited.Error()
}

// Unwrap exposes ErrRateLimited to errors.Is.
func (e *RateLimitExceededError) Unwrap() error {
	return ErrRateLimited
}

// classifyProviderError maps adapter errors onto the controller's error kinds for
// operations without a dedicated rejection kind. Provider rejections are returned wrapped
// so the reason stays available through errors.As.
func classifyProviderError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, port.ErrProviderUnreachable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	var perr *port.ProviderError
	if errors.As(err, &perr) {
		if perr.Status == http.StatusTooManyRequests {
			return &RateLimitExceededError{Scope: "provider"}
		}
		return err
	}

	return fmt.Errorf("%w: %v", ErrUnexpectedProviderResponse, err)
}

func classifyLoginError(err error) error {
	var perr *port.ProviderError
	if errors.As(err, &perr) && perr.Status != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, providerReason(perr))
	}
	return classifyProviderError(err)
}

func classifySignupError(err error) error {
	var perr *port.ProviderError
	if errors.As(err, &perr) && perr.Status != http.StatusTooManyRequests {
		return &RegistrationError{Code: perr.Code, Reason: providerReason(perr)}
	}
	return classifyProviderError(err)
}

func providerReason(perr *port.ProviderError) string {
	if msg := strings.TrimSpace(perr.Message); msg != "" {
		return msg
	}
	if perr.Code != "" {
		return perr.Code
	}
	return http.StatusText(perr.Status)
}

// ProviderMessage extracts a displayable provider reason from err, if any.
func ProviderMessage(err error) string {
	var regErr *RegistrationError
	if errors.As(err, &regErr) {
		return regErr.Reason
	}
	var perr *port.ProviderError
	if errors.As(err, &perr) {
		return providerReason(perr)
	}
	return ""
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrRegistrationFailed):
		return "registration_failed"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrInvalidResetSession):
		return "invalid_reset_session"
	case errors.Is(err, ErrPasswordMismatch):
		return "password_mismatch"
	case errors.Is(err, ErrPasswordTooWeak):
		return "password_too_weak"
	case errors.Is(err, ErrUnexpectedProviderResponse):
		return "unexpected_response"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "provider_rejected"
	}
}

func normalizeIdentifierKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// enforceRateLimit applies a sliding window per identifier. Store failures fail open.
func (c *AuthController) enforceRateLimit(ctx context.Context, scope, identifier string, limit int) error {
	if c.rateLimits == nil || limit <= 0 {
		return nil
	}

	key := normalizeIdentifierKey(identifier)
	if key == "" {
		return nil
	}

	window := c.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	now := c.now()
	storageKey := fmt.Sprintf("%s:%s", scope, key)

	if err := c.rateLimits.TrimWindow(ctx, storageKey, window, now); err != nil {
		c.logger.Warn("rate limit trim failed", zap.String("scope", scope), zap.Error(err))
		return nil
	}

	count, err := c.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		c.logger.Warn("rate limit count failed", zap.String("scope", scope), zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := c.rateLimits.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			if reset := oldest.Add(window); reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			c.logger.Warn("rate limit oldest lookup failed", zap.String("scope", scope), zap.Error(err))
		}
		return &RateLimitExceededError{Scope: scope, RetryAfter: retryAfter}
	}

	if err := c.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		c.logger.Warn("rate limit record failed", zap.String("scope", scope), zap.Error(err))
	}

	return nil
}
