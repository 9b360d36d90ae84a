package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

// SurfaceResponse tells the client which surface to render instead of the requested one.
type SurfaceResponse struct {
	Surface  string `json:"surface"`
	Location string `json:"location,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

// RouteGuard admits requests to the protected surface only while the session is authenticated.
// While restoration is outstanding it answers 503 so nothing protected is rendered early.
// Unauthenticated navigations are redirected to entryPath; other methods get 401.
func RouteGuard(guard *usecase.RouteGuard, entryPath string) gin.HandlerFunc {
	if entryPath == "" {
		entryPath = "/auth"
	}

	return func(c *gin.Context) {
		surface, state := guard.Evaluate()

		switch surface {
		case usecase.SurfaceProtected:
			identity, _ := state.Identity()
			c.Set(IdentityKey, identity)
			setUserID(c, identity.ID)
			c.Next()

		case usecase.SurfaceEntry:
			if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
				c.Redirect(http.StatusFound, entryPath)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, SurfaceResponse{
				Surface:  usecase.SurfaceEntry.String(),
				Location: entryPath,
				TraceID:  GetTraceID(c),
			})

		default:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, SurfaceResponse{
				Surface: usecase.SurfaceLoading.String(),
				TraceID: GetTraceID(c),
			})
		}
	}
}
