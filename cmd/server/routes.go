package main

import (
	"github.com/gin-gonic/gin"

	"github.com/collabspace/server/internal/middleware"
	"github.com/collabspace/server/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for credential endpoints
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", svc.healthHandler.Health)

	// Websocket rooms (handshake runs its own authorization)
	r.GET("/ws", svc.wsHandler.Connect)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.blacklist))
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.PUT("/auth/password", svc.authHandler.ChangePassword)

			// Users
			protected.GET("/users/lookup", svc.userHandler.Lookup)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/:id", svc.projectHandler.Get)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)
			protected.GET("/projects/:id/members", svc.projectHandler.Members)
			protected.DELETE("/projects/:id/members/:userId", svc.projectHandler.RemoveMember)
			protected.POST("/projects/:id/leave", svc.projectHandler.Leave)
			protected.GET("/projects/:id/invitations", svc.invitationHandler.ListForProject)

			// Invitations
			protected.POST("/invitations", svc.invitationHandler.Create)
			protected.GET("/invitations", svc.invitationHandler.ListReceived)
			protected.POST("/invitations/:id/accept", svc.invitationHandler.Accept)
			protected.POST("/invitations/:id/reject", svc.invitationHandler.Reject)

			// System logs and runtime settings
			protected.GET("/system-logs", svc.systemHandler.ListLogs)
			protected.GET("/system-logs/retention", svc.systemHandler.GetRetention)
			protected.PUT("/system-logs/retention", svc.systemHandler.SetRetention)
			protected.POST("/system-logs/cleanup", svc.systemHandler.CleanupLogs)
			protected.GET("/system-config/ai", svc.systemHandler.GetAIConfig)
			protected.PUT("/system-config/ai", svc.systemHandler.UpdateAIConfig)
		}
	}
}
