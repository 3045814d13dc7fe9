package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/collabspace/server/internal/services"
	"github.com/collabspace/server/pkg/response"
)

type HealthHandler struct {
	db        *gorm.DB
	blacklist *services.TokenBlacklist
}

func NewHealthHandler(db *gorm.DB, blacklist *services.TokenBlacklist) *HealthHandler {
	return &HealthHandler{db: db, blacklist: blacklist}
}

// Health reports readiness of the server and its stores
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := gin.H{"status": "ok"}

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
	} else {
		status["database"] = "ok"
	}

	if h.blacklist != nil {
		if err := h.blacklist.Ping(c.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["redis"] = "unreachable"
		} else {
			status["redis"] = "ok"
		}
	}

	response.Success(c, status)
}
