package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/syllabind/core/internal/pkg/response"
)

const ContextKeyAdmin = "is_admin"

// AdminAuth enforces the static admin token on destructive endpoints.
// An empty expected token leaves them open, which only makes sense for
// local development.
func AdminAuth(expectedToken string) gin.HandlerFunc {
	expected := strings.TrimSpace(expectedToken)
	return func(c *gin.Context) {
		if expected == "" {
			c.Set(ContextKeyAdmin, true)
			c.Next()
			return
		}
		provided := extractToken(c)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyAdmin, true)
		c.Next()
	}
}

// OptionalAdmin marks the request as admin when a valid token is present,
// but never blocks it. With no token configured nothing is marked, so the
// rate limiter keeps applying to everyone.
func OptionalAdmin(expectedToken string) gin.HandlerFunc {
	expected := strings.TrimSpace(expectedToken)
	return func(c *gin.Context) {
		if expected != "" {
			if provided := extractToken(c); provided != "" &&
				subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1 {
				c.Set(ContextKeyAdmin, true)
			}
		}
		c.Next()
	}
}

// IsAdmin reports whether the request passed admin token validation.
func IsAdmin(c *gin.Context) bool {
	v, _ := c.Get(ContextKeyAdmin)
	ok, _ := v.(bool)
	return ok
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
