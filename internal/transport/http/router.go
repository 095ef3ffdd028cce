// Package http is the HTTP boundary: gin handlers, middleware wiring, and
// the kind-to-status mapping. Handlers stay thin; every decision that
// matters lives in the services.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Chung305/threadline/internal/domain"
	"github.com/Chung305/threadline/internal/service/message"
	"github.com/Chung305/threadline/internal/service/session"
	"github.com/Chung305/threadline/internal/transport/http/middleware"
)

type RouterDeps struct {
	Sessions       *session.Service
	Messages       *message.Service
	AllowedOrigins []string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	authHandler := NewAuthHandler(deps.Sessions)
	userHandler := NewUserHandler(deps.Sessions)
	messageHandler := NewMessageHandler(deps.Messages)

	authMW := middleware.RequireAuth(deps.Sessions)

	v1 := router.Group("/api/v1")

	// Public auth routes
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/refresh-token", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("")
	protected.Use(authMW)
	{
		protected.POST("/auth/logout", authHandler.Logout)

		protected.GET("/user", userHandler.Me)
		protected.PUT("/user", userHandler.Update)
		protected.GET("/users", middleware.Authorize(domain.RoleAdmin), userHandler.List)

		protected.POST("/message", messageHandler.Create)
		protected.GET("/message/random", messageHandler.Random)
		protected.POST("/message/:id/claim", messageHandler.Claim)
	}

	return router
}
