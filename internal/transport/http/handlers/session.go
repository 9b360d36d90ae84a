package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/transport/http/middleware"
	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

const (
	sessionEventName   = "session"
	eventBufferSize    = 16
	keepAliveInterval  = 15 * time.Second
	keepAliveEventName = "ping"
)

var entryForms = []string{"login", "signup", "forgot_password"}

// SessionHandler exposes read access to the session state and the surfaces it selects.
type SessionHandler struct {
	auth   *usecase.AuthController
	logger *zap.Logger
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(auth *usecase.AuthController, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{auth: auth, logger: logger}
}

// State godoc
// @Summary Current session state
// @Tags Session
// @Produce json
// @Success 200 {object} SessionStateResponse
// @Router /auth/session [get]
func (h *SessionHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.describe(h.auth.Store().State()))
}

// Entry godoc
// @Summary Entry surface
// @Description Describes the login and sign-up surface; authenticated sessions are pointed at the app.
// @Tags Session
// @Produce json
// @Success 200 {object} EntryResponse
// @Router /auth [get]
func (h *SessionHandler) Entry(c *gin.Context) {
	surface := usecase.SelectSurface(h.auth.Store().State())

	resp := EntryResponse{
		Surface:           surface.String(),
		Forms:             entryForms,
		MinPasswordLength: h.auth.MinPasswordLength(),
	}
	if surface == usecase.SurfaceProtected {
		resp.Redirect = AppPath
	}
	c.JSON(http.StatusOK, resp)
}

// App godoc
// @Summary Protected application surface
// @Tags Session
// @Produce json
// @Success 200 {object} AppResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /app/{path} [get]
func (h *SessionHandler) App(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, AppResponse{
		Surface: usecase.SurfaceProtected.String(),
		Path:    c.Param("path"),
		User:    newIdentityResponse(identity),
	})
}

// Events godoc
// @Summary Session state stream
// @Description Server-sent events: the current state first, then one event per transition.
// @Tags Session
// @Produce text/event-stream
// @Success 200 {object} SessionStateResponse
// @Router /auth/events [get]
func (h *SessionHandler) Events(c *gin.Context) {
	// The listener runs on the mutating goroutine, so it must never block.
	// A full buffer only drops intermediate states; the latest is sent on the next wake-up.
	updates := make(chan domain.SessionState, eventBufferSize)
	release := h.auth.Store().Subscribe(func(state domain.SessionState) {
		select {
		case updates <- state:
		default:
			h.logger.Debug("session event dropped for slow stream")
		}
	})
	defer release()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.SSEvent(sessionEventName, h.describe(h.auth.Store().State()))
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent(keepAliveEventName, time.Now().UTC().Format(time.RFC3339))
		case state := <-updates:
			c.SSEvent(sessionEventName, h.describe(state))
		}
		c.Writer.Flush()
	}
}

func (h *SessionHandler) describe(state domain.SessionState) SessionStateResponse {
	resp := SessionStateResponse{
		State:   state.Tag().String(),
		Surface: usecase.SelectSurface(state).String(),
		Pending: h.auth.Pending(),
	}
	if identity, ok := state.Identity(); ok {
		view := newIdentityResponse(identity)
		resp.Identity = &view
	}
	return resp
}
