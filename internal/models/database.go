package models

import (
	"fmt"

	"github.com/collabspace/server/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	if err := DB.SetupJoinTable(&Project{}, "Members", &ProjectMember{}); err != nil {
		return err
	}

	if err := DB.AutoMigrate(
		&User{},
		&Project{},
		&ProjectMember{},
		&Invitation{},
		&SystemConfig{},
		&SystemLog{},
	); err != nil {
		return err
	}

	return createPendingInvitationIndex()
}

// createPendingInvitationIndex enforces at most one pending invitation per
// (project, recipient) pair. Partial indexes exist on sqlite and postgres;
// on mysql the service-level existence check is the only guard.
func createPendingInvitationIndex() error {
	if DB.Dialector.Name() == "mysql" {
		return nil
	}
	return DB.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_pending
		 ON invitations (project_id, recipient_id) WHERE status = 'pending'`,
	).Error
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates default runtime settings if not exists.
func SeedDefaultData() error {
	defaultConfigs := []SystemConfig{
		{Key: "ai_max_attempts", Value: "3", Type: "int", Group: "ai", Label: "AI Max Retry Attempts"},
		{Key: "ai_backoff_base_ms", Value: "1000", Type: "int", Group: "ai", Label: "AI Retry Backoff Base (ms)"},
		{Key: "log_retention_days", Value: "30", Type: "int", Group: "system", Label: "Audit Log Retention Days"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		DB.Model(&SystemConfig{}).Where("`key` = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := DB.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
