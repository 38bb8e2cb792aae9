package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zentist/clinicdesk/auth"
)

const userContextKey = "clinicdesk.user"

// requireAuth validates the bearer token and stores the authenticated user on
// the request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
			return
		}

		user, err := s.verifier.Verify(raw)
		if err != nil {
			s.logger.Warn("server.auth.rejected", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired token"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) auth.User {
	user, _ := c.MustGet(userContextKey).(auth.User)
	return user
}
