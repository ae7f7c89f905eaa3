// Package http exposes the session and publication operations to local
// clients over HTTP.
package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter sets up the Gin router
func SetupRouter(h *Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	session := router.Group("/session")
	{
		session.POST("/login", h.Login)
		session.POST("/logout", h.Logout)
		session.GET("", RequireSession(h.sessions), h.Session)
	}

	// metadata validation works with or without a session
	router.POST("/metadata/validate", h.ValidateMetadata)

	api := router.Group("/")
	api.Use(RequireSession(h.sessions))
	{
		api.GET("/profile", h.Profile)
		api.POST("/publications", h.Publish)
	}

	return router
}
