package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse = middleware.ErrorResponse

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// IdentityResponse is the public view of an authenticated identity.
type IdentityResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

func newIdentityResponse(identity domain.Identity) IdentityResponse {
	return IdentityResponse{
		ID:        identity.ID,
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		FullName:  identity.FullName(),
	}
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest defines the payload for the sign-up endpoint.
type SignupRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// SignupResponse reports an accepted sign-up.
type SignupResponse struct {
	Message              string           `json:"message"`
	RequiresConfirmation bool             `json:"requires_confirmation"`
	User                 IdentityResponse `json:"user"`
}

// EmailRequest carries a single e-mail address (resend, forgot password).
type EmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest defines the payload completing a password reset.
type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ResetSessionResponse tells the reset screen whether the form may be shown.
type ResetSessionResponse struct {
	Valid             bool   `json:"valid"`
	MinPasswordLength int    `json:"min_password_length"`
	Message           string `json:"message,omitempty"`
}

// SessionStateResponse describes the current session state.
type SessionStateResponse struct {
	State    string            `json:"state"`
	Surface  string            `json:"surface"`
	Pending  bool              `json:"pending"`
	Identity *IdentityResponse `json:"identity,omitempty"`
}

// EntryResponse describes the entry surface.
type EntryResponse struct {
	Surface           string   `json:"surface"`
	Forms             []string `json:"forms"`
	MinPasswordLength int      `json:"min_password_length"`
	Redirect          string   `json:"redirect,omitempty"`
}

// AppResponse is returned by the protected surface.
type AppResponse struct {
	Surface string           `json:"surface"`
	Path    string           `json:"path"`
	User    IdentityResponse `json:"user"`
}

// ProfileResponse mirrors a row of the users table.
type ProfileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

func newProfileResponse(profile *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		AvatarURL: profile.AvatarURL,
		CreatedAt: profile.CreatedAt,
	}
}

// CreateProfileRequest defines the payload for creating a profile.
type CreateProfileRequest struct {
	UserID    string  `json:"user_id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

// CreateProfileResponse is returned for both created and existing profiles.
type CreateProfileResponse struct {
	Message string          `json:"message"`
	User    ProfileResponse `json:"user"`
}

// HealthResponse describes liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse describes readiness with per-dependency results.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
