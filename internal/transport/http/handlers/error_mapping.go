package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// authErrorCases covers the controller's error kinds shared by every auth action.
var authErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "Invalid email or password"},
	{Err: usecase.ErrPasswordMismatch, Status: http.StatusBadRequest, Message: "Passwords do not match"},
	{Err: usecase.ErrInvalidResetSession, Status: http.StatusUnauthorized, Message: "Invalid or expired reset link. Please request a new password reset."},
	{Err: usecase.ErrOperationPending, Status: http.StatusConflict, Message: "Another request is already in progress"},
	{Err: usecase.ErrProviderUnavailable, Status: http.StatusServiceUnavailable, Message: "Authentication service unavailable"},
	{Err: usecase.ErrControllerDisposed, Status: http.StatusServiceUnavailable, Message: "Session host is shutting down"},
	{Err: usecase.ErrUnexpectedProviderResponse, Status: http.StatusBadGateway, Message: "Unexpected response from authentication service"},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// respondAuthError writes err from an AuthController action. Errors that carry a reason for
// the user (registration, password policy, provider rejections) surface it.
func respondAuthError(c *gin.Context, err error, fallbackMessage string) {
	var limited *usecase.RateLimitExceededError
	if errors.As(err, &limited) {
		if seconds := int(limited.RetryAfter.Seconds()); seconds > 0 {
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
		c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "Too many attempts. Please try again later."))
		return
	}

	switch {
	case errors.Is(err, usecase.ErrRegistrationFailed):
		message := usecase.ProviderMessage(err)
		if message == "" {
			message = "Registration failed"
		}
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, message))
		return
	case errors.Is(err, usecase.ErrPasswordTooWeak):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	if message := usecase.ProviderMessage(err); message != "" && !errors.Is(err, usecase.ErrInvalidCredentials) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, message))
		return
	}

	RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, fallbackMessage)
}
