package services

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/collabspace/server/internal/models"
	"github.com/collabspace/server/pkg/logger"
	"gorm.io/gorm"
)

var auditDB *gorm.DB

// InitAuditLogger sets the database used for audit records. Call once at startup.
func InitAuditLogger(db *gorm.DB) {
	auditDB = db
}

func AuditInfo(module, action, message string, userID *uint, ip string) {
	writeAudit("info", module, action, message, userID, ip, nil)
}

func AuditWarning(module, action, message string, userID *uint, ip string) {
	writeAudit("warning", module, action, message, userID, ip, nil)
}

func AuditError(module, action, message string, userID *uint, ip string) {
	writeAudit("error", module, action, message, userID, ip, nil)
}

func writeAudit(level, module, action, message string, userID *uint, ip string, extra interface{}) {
	if auditDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	rec := &models.SystemLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	auditDB.Create(rec)
}

type SystemLogService struct {
	db        *gorm.DB
	configSvc *SystemConfigService
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db, configSvc: NewSystemConfigService(db)}
}

type SystemLogListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Level    string `form:"level"`
	Module   string `form:"module"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.SystemLog{})
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.SystemLog
	if err := query.Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&items).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

// RetentionDays returns the configured audit retention window.
func (s *SystemLogService) RetentionDays() int {
	days, err := strconv.Atoi(s.configSvc.GetWithDefault("log_retention_days", "30"))
	if err != nil || days <= 0 {
		return 30
	}
	return days
}

// Cleanup deletes audit records older than the retention window and returns
// the number of rows removed.
func (s *SystemLogService) Cleanup() (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.RetentionDays())
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		logger.Infof("[Audit] Cleaned up %d audit records older than %v", result.RowsAffected, cutoff)
	}
	return result.RowsAffected, nil
}
