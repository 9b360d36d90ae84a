package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/transport/http/middleware"
	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

// ProfileHandler exposes the profile backing-store API.
type ProfileHandler struct {
	profiles *usecase.ProfileService
	logger   *zap.Logger
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *usecase.ProfileService, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// RegisterRoutes binds the user routes behind auth.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	r.POST("", auth, h.create)
	r.GET("/:id", auth, h.get)
}

// Welcome godoc
// @Summary Welcome message
// @Tags Profiles
// @Produce json
// @Success 200 {object} MessageResponse
// @Router / [get]
func (h *ProfileHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: "Welcome to the NBA IQ API"})
}

// CreateProfile godoc
// @Summary Create the caller's profile
// @Description Creates the profile unless one exists; the token subject must match user_id.
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProfileRequest true "Profile"
// @Success 200 {object} CreateProfileResponse
// @Success 201 {object} CreateProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/users [post]
func (h *ProfileHandler) create(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Missing required fields: user_id, email, full_name"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.FullName) == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Missing required fields: user_id, email, full_name"))
		return
	}

	callerID, _ := middleware.GetAuthenticatedUserID(c)
	if callerID != strings.TrimSpace(req.UserID) {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "Forbidden"))
		return
	}

	profile, created, err := h.profiles.Create(c.Request.Context(), usecase.CreateProfileInput{
		UserID:    req.UserID,
		Email:     req.Email,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrProfileInvalid) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Missing required fields: user_id, email, full_name"))
			return
		}
		h.logger.Error("create profile failed", zap.String("user_id", callerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Failed to create user"))
		return
	}

	if !created {
		c.JSON(http.StatusOK, CreateProfileResponse{Message: "User already exists", User: newProfileResponse(profile)})
		return
	}
	c.JSON(http.StatusCreated, CreateProfileResponse{Message: "User created successfully", User: newProfileResponse(profile)})
}

// GetProfile godoc
// @Summary Fetch a profile
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/users/{id} [get]
func (h *ProfileHandler) get(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrProfileNotFound):
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "User not found"))
		case errors.Is(err, usecase.ErrProfileInvalid):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "User id is required"))
		default:
			h.logger.Error("get profile failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Failed to fetch user"))
		}
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(profile))
}
