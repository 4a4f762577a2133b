// README: Auth middleware resolving the caller's user id.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rumbo/internal/infra"
)

const userIDKey = "auth_user_id"

// Auth resolves the caller identity. With a verifier configured it requires a
// Firebase ID token in the Authorization header. Without one (local runs,
// tests) it falls back to the X-User-ID header.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			uid := c.GetHeader("X-User-ID")
			if uid == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID"})
				return
			}
			c.Set(userIDKey, uid)
			c.Next()
			return
		}

		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" || raw == c.GetHeader("Authorization") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(userIDKey, token.UID)
		c.Next()
	}
}

// UserID returns the authenticated caller id set by Auth.
func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	uid, _ := v.(string)
	return uid
}
