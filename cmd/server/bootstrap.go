package main

import (
	"github.com/collabspace/server/internal/config"
	"github.com/collabspace/server/internal/handlers"
	"github.com/collabspace/server/internal/models"
	"github.com/collabspace/server/internal/realtime"
	"github.com/collabspace/server/internal/services"
	"github.com/collabspace/server/internal/utils"
	"github.com/collabspace/server/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	blacklist         *services.TokenBlacklist
	hub               *realtime.Hub
	taskQueue         services.TaskQueue
	worker            *services.Worker
	maintenance       *services.MaintenanceScheduler
	authHandler       *handlers.AuthHandler
	userHandler       *handlers.UserHandler
	projectHandler    *handlers.ProjectHandler
	invitationHandler *handlers.InvitationHandler
	systemHandler     *handlers.SystemHandler
	healthHandler     *handlers.HealthHandler
	wsHandler         *handlers.WSHandler
}

// bootstrap initializes all application dependencies: database, services,
// realtime hub, AI pipeline, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed default data
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()
	services.InitAuditLogger(db)

	// Token revocation store (optional)
	var blacklist *services.TokenBlacklist
	if cfg.Redis.Enabled {
		var err error
		blacklist, err = services.NewTokenBlacklist(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, token revocation disabled")
			blacklist = nil
		}
	}

	// Core services
	authService := services.NewAuthService(db, &cfg.JWT, blacklist)
	projectService := services.NewProjectService(db)

	// Realtime hub and AI pipeline
	hub := realtime.NewHub()
	invitationService := services.NewInvitationService(db, hub)

	aiService, err := services.NewAIService(&cfg.AI, services.NewSystemConfigService(db))
	if err != nil {
		logger.Fatalf("Failed to initialize AI providers: %v", err)
	}
	responder := realtime.NewAIResponder(hub, aiService)

	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(responder.Process)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(responder.Process)
			worker.Start()
		}
	}

	router := realtime.NewRouter(hub, taskQueue)

	// Audit retention sweep
	maintenance := services.NewMaintenanceScheduler(db)
	if err := maintenance.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start maintenance scheduler")
	}

	return &appServices{
		blacklist:         blacklist,
		hub:               hub,
		taskQueue:         taskQueue,
		worker:            worker,
		maintenance:       maintenance,
		authHandler:       handlers.NewAuthHandler(authService),
		userHandler:       handlers.NewUserHandler(authService),
		projectHandler:    handlers.NewProjectHandler(projectService),
		invitationHandler: handlers.NewInvitationHandler(invitationService, authService),
		systemHandler:     handlers.NewSystemHandler(db),
		healthHandler:     handlers.NewHealthHandler(db, blacklist),
		wsHandler:         handlers.NewWSHandler(hub, router, projectService, blacklist),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	if s.maintenance != nil {
		s.maintenance.Stop()
	}
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if s.blacklist != nil {
		s.blacklist.Close()
	}
	logger.Info().Msg("All services stopped")
}
