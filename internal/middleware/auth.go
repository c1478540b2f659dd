package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dashboard-console/internal/auth"
	"dashboard-console/internal/model"
)

const claimsContextKey = "viewerClaims"

// ViewerFromContext returns the claims RequireAuth accepted.
func ViewerFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil && claims.UserID != ""
}

func bearer(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func RequireAuth(cfg auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}

		claims, err := auth.VerifyToken(tok, cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// RequireSession rejects viewers whose token names a user other than the
// one currently signed in. It must run after RequireAuth.
func RequireSession(current func() (model.User, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ViewerFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}
		user, ok := current()
		if !ok || user.ID != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session ended"})
			return
		}
		c.Next()
	}
}
