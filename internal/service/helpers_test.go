package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
)

// newTestDB opens an isolated in-memory database with the full schema. The
// pool is pinned to one connection so every query sees the same memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func newTestControls(t *testing.T, db *gorm.DB) *ControlService {
	t.Helper()

	logger := zap.NewNop()
	controls := NewControlService(db, logger, NewAuditService(db, logger))
	require.NoError(t, controls.Initialize(context.Background()))
	return controls
}

func createTestItem(t *testing.T, db *gorm.DB, status models.ContentStatus) *models.ContentItem {
	t.Helper()

	item := &models.ContentItem{
		Platform:  models.PlatformLinkedIn,
		Body:      "Scaling a review pipeline without losing your weekends.",
		Hashtags:  models.StringArray{"engineering", "automation"},
		Status:    status,
		CreatedBy: 1,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func futureTime() time.Time {
	return time.Now().Add(time.Hour)
}
