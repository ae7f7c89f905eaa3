package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/herald/service"
	"go.uber.org/zap"
)

// RequireSession rejects requests made while no session is active
func RequireSession(sessions *service.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessions.CurrentSession(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
			return
		}

		c.Set("sessionAddress", session.Address.Hex())

		c.Next()
	}
}

// RequestLogger logs every request once it has been served
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("Request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
