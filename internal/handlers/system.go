package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/collabspace/server/internal/services"
	"github.com/collabspace/server/pkg/response"
)

// SystemHandler exposes the audit log and runtime settings.
type SystemHandler struct {
	logService *services.SystemLogService
	configSvc  *services.SystemConfigService
}

func NewSystemHandler(db *gorm.DB) *SystemHandler {
	return &SystemHandler{
		logService: services.NewSystemLogService(db),
		configSvc:  services.NewSystemConfigService(db),
	}
}

// ListLogs returns a page of audit records
// GET /api/system-logs
func (h *SystemHandler) ListLogs(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.logService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetRetention returns the audit retention window in days
// GET /api/system-logs/retention
func (h *SystemHandler) GetRetention(c *gin.Context) {
	response.Success(c, gin.H{"retention_days": h.logService.RetentionDays()})
}

type setRetentionRequest struct {
	RetentionDays int `json:"retention_days" binding:"required,min=1,max=365"`
}

// SetRetention updates the audit retention window
// PUT /api/system-logs/retention
func (h *SystemHandler) SetRetention(c *gin.Context) {
	var req setRetentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configSvc.Set("log_retention_days", strconv.Itoa(req.RetentionDays)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"retention_days": req.RetentionDays})
}

// CleanupLogs removes audit records past the retention window
// POST /api/system-logs/cleanup
func (h *SystemHandler) CleanupLogs(c *gin.Context) {
	removed, err := h.logService.Cleanup()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"removed": removed})
}

// GetAIConfig returns the runtime assistant knobs
// GET /api/system-config/ai
func (h *SystemHandler) GetAIConfig(c *gin.Context) {
	response.Success(c, gin.H{
		"max_attempts":    h.configSvc.GetWithDefault("ai_max_attempts", "3"),
		"backoff_base_ms": h.configSvc.GetWithDefault("ai_backoff_base_ms", "1000"),
	})
}

type updateAIConfigRequest struct {
	MaxAttempts   int `json:"max_attempts" binding:"omitempty,min=1,max=10"`
	BackoffBaseMS int `json:"backoff_base_ms" binding:"omitempty,min=100,max=60000"`
}

// UpdateAIConfig updates the runtime assistant knobs
// PUT /api/system-config/ai
func (h *SystemHandler) UpdateAIConfig(c *gin.Context) {
	var req updateAIConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.MaxAttempts > 0 {
		if err := h.configSvc.Set("ai_max_attempts", strconv.Itoa(req.MaxAttempts)); err != nil {
			response.Error(c, err)
			return
		}
	}
	if req.BackoffBaseMS > 0 {
		if err := h.configSvc.Set("ai_backoff_base_ms", strconv.Itoa(req.BackoffBaseMS)); err != nil {
			response.Error(c, err)
			return
		}
	}

	h.GetAIConfig(c)
}
