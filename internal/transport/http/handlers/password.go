package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

// PasswordHandler exposes the forgot and reset password flow.
type PasswordHandler struct {
	auth *usecase.AuthController
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(auth *usecase.AuthController) *PasswordHandler {
	return &PasswordHandler{auth: auth}
}

// RegisterRoutes binds password routes, applying optional middleware ahead of the forgot action.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, forgotMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, forgotMiddlewares...)
	chain = append(chain, h.forgot)
	r.POST("/forgot", chain...)

	r.GET("/reset", h.resetStatus)
	r.POST("/reset", h.reset)
}

// ForgotPassword godoc
// @Summary Request a password reset link
// @Tags Password
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Address"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/password/forgot [post]
func (h *PasswordHandler) forgot(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Email is required"))
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondAuthError(c, err, "Failed to send reset email")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password reset email sent. Please check your inbox."})
}

// ResetStatus godoc
// @Summary Check the reset session
// @Description Reports whether the reset form may be shown.
// @Tags Password
// @Produce json
// @Success 200 {object} ResetSessionResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/password/reset [get]
func (h *PasswordHandler) resetStatus(c *gin.Context) {
	valid, err := h.auth.ValidateResetSession(c.Request.Context())
	if err != nil {
		respondAuthError(c, err, "Failed to check reset session")
		return
	}

	resp := ResetSessionResponse{Valid: valid, MinPasswordLength: h.auth.MinPasswordLength()}
	if !valid {
		resp.Message = "Invalid or expired reset link. Please request a new password reset."
	}
	c.JSON(http.StatusOK, resp)
}

// ResetPassword godoc
// @Summary Set a new password
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "New password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/password/reset [post]
func (h *PasswordHandler) reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Password and confirmation are required"))
		return
	}

	if err := h.auth.CompletePasswordReset(c.Request.Context(), req.Password, req.ConfirmPassword); err != nil {
		respondAuthError(c, err, "Failed to update password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}
