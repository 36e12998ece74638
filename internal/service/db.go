package service

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/config"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
)

func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode, cfg.TimeZone)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for all lifecycle models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ContentItem{},
		&models.ApprovalRecord{},
		&models.ScheduledPublication{},
		&models.SystemControlState{},
		&models.AuditEntry{},
		&models.SystemStats{},
	)
}
