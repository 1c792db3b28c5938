package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/service"
)

const sessionContextKey = "warden_session"

// SessionFromContext returns the session set by AuthMiddleware, or nil.
func SessionFromContext(c *gin.Context) *core.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	session, _ := v.(*core.Session)
	return session
}

// AuthMiddleware validates the bearer credential and attaches the session to
// the request context.
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		credential := strings.TrimPrefix(header, "Bearer ")

		session, err := auth.Introspect(c.Request.Context(), credential)
		if err != nil {
			if errors.Is(err, core.ErrCredentialExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "credential expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "credential invalid"})
			}
			return
		}

		c.Set(sessionContextKey, session)

		c.Next()
	}
}
