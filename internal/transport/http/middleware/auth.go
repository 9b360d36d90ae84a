package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/albrthuynh/NBAIQ/internal/infra/security"
)

const claimsKey = "claims"

// BearerAuth verifies the Authorization header against verifier and stores the token subject
// as the authenticated user id.
func BearerAuth(verifier *security.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "Missing or invalid token"))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "Missing or invalid token"))
			return
		}

		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "Missing or invalid token"))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "Invalid token"))
			return
		}

		setUserID(c, claims.Subject)
		c.Set(claimsKey, claims)

		c.Next()
	}
}

// GetClaims retrieves the verified access-token claims placed by BearerAuth.
func GetClaims(c *gin.Context) (*security.AccessTokenClaims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*security.AccessTokenClaims)
	return claims, ok
}
