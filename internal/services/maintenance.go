package services

import (
	"github.com/collabspace/server/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// MaintenanceScheduler runs periodic housekeeping: audit log retention sweep.
type MaintenanceScheduler struct {
	cron   *cron.Cron
	logSvc *SystemLogService
}

func NewMaintenanceScheduler(db *gorm.DB) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron:   cron.New(),
		logSvc: NewSystemLogService(db),
	}
}

// Start schedules the daily cleanup job (03:00 server time).
func (m *MaintenanceScheduler) Start() error {
	_, err := m.cron.AddFunc("0 3 * * *", func() {
		if _, err := m.logSvc.Cleanup(); err != nil {
			logger.Errorf("[Maintenance] Audit cleanup failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	m.cron.Start()
	logger.Infof("[Maintenance] Scheduler started, retention: %d days", m.logSvc.RetentionDays())
	return nil
}

func (m *MaintenanceScheduler) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	logger.Infof("[Maintenance] Scheduler stopped")
}
