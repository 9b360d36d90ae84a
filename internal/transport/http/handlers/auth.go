package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

const (
	// AppPath is where a confirmed sign-in lands.
	AppPath = "/app/"
	// ResetFormPath is where a password recovery link lands.
	ResetFormPath = "/auth/password/reset"
)

// AuthHandler exposes the session host's authentication actions.
type AuthHandler struct {
	auth *usecase.AuthController
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthController) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of login.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.login)
	r.POST("/login", chain...)

	r.POST("/signup", h.signup)
	r.POST("/logout", h.logout)
	r.POST("/resend", h.resend)
	r.GET("/callback", h.callback)
}

// Login godoc
// @Summary Sign in with e-mail and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} IdentityResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Email and password are required"))
		return
	}

	identity, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err, "Failed to sign in")
		return
	}

	c.JSON(http.StatusOK, newIdentityResponse(identity))
}

// Signup godoc
// @Summary Create an account
// @Description Registers an account. The session stays unauthenticated until the e-mail is confirmed.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Sign-up payload"
// @Success 201 {object} SignupResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Email, password and confirmation are required"))
		return
	}
	if err := usecase.CheckPasswordConfirmation(req.Password, req.ConfirmPassword); err != nil {
		respondAuthError(c, err, "Failed to sign up")
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err, "Failed to sign up")
		return
	}

	message := "Account created"
	if result.RequiresConfirmation {
		message = "Please check your email to confirm your account"
	}

	c.JSON(http.StatusCreated, SignupResponse{
		Message:              message,
		RequiresConfirmation: result.RequiresConfirmation,
		User:                 newIdentityResponse(result.Identity),
	})
}

// Logout godoc
// @Summary Sign out
// @Description Always clears the local session, even when the provider cannot be reached.
// @Tags Authentication
// @Success 204 {string} string ""
// @Failure 503 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		respondAuthError(c, err, "Failed to sign out")
		return
	}
	c.Status(http.StatusNoContent)
}

// Resend godoc
// @Summary Resend the confirmation e-mail
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Address"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/resend [post]
func (h *AuthHandler) resend(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Email is required"))
		return
	}

	if err := h.auth.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
		respondAuthError(c, err, "Failed to resend confirmation")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Confirmation email sent"})
}

// Callback godoc
// @Summary Complete an e-mail link
// @Description Exchanges the one-time code from a confirmation or recovery link and redirects.
// @Tags Authentication
// @Param code query string false "One-time code"
// @Param error_code query string false "Provider error code"
// @Param error_description query string false "Provider error description"
// @Success 302 {string} string ""
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/callback [get]
func (h *AuthHandler) callback(c *gin.Context) {
	errorCode := c.Query("error_code")
	if errorCode == "" {
		errorCode = c.Query("error")
	}

	result, err := h.auth.ConfirmFromCallback(c.Request.Context(), usecase.CallbackParams{
		Code:             c.Query("code"),
		ErrorCode:        errorCode,
		ErrorDescription: c.Query("error_description"),
	})
	if err != nil {
		if errors.Is(err, usecase.ErrUnexpectedProviderResponse) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
			return
		}
		respondAuthError(c, err, "Failed to confirm link")
		return
	}

	if result.Recovery {
		c.Redirect(http.StatusFound, ResetFormPath)
		return
	}
	c.Redirect(http.StatusFound, AppPath)
}
