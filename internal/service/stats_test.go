package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
)

func TestUpdateSystemStats(t *testing.T) {
	db := newTestDB(t)
	stats := NewStatsService(db, zap.NewNop())

	createTestItem(t, db, models.StatusDraft)
	createTestItem(t, db, models.StatusDraft)
	createTestItem(t, db, models.StatusApproved)
	createTestItem(t, db, models.StatusPublished)

	require.NoError(t, stats.UpdateSystemStats())

	latest, err := stats.Latest()
	require.NoError(t, err)
	assert.Equal(t, 4, latest.TotalContentItems)
	assert.Equal(t, 2, latest.DraftItems)
	assert.Equal(t, 1, latest.ApprovedItems)
	assert.Equal(t, 1, latest.PublishedItems)

	// A second run updates today's row instead of adding another.
	createTestItem(t, db, models.StatusDraft)
	require.NoError(t, stats.UpdateSystemStats())

	var count int64
	require.NoError(t, db.Model(&models.SystemStats{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	latest, err = stats.Latest()
	require.NoError(t, err)
	assert.Equal(t, 5, latest.TotalContentItems)
	assert.Equal(t, 3, latest.DraftItems)
}

func TestStatsUpdaterRunsPeriodically(t *testing.T) {
	db := newTestDB(t)
	stats := NewStatsService(db, zap.NewNop())

	createTestItem(t, db, models.StatusDraft)

	updater := NewStatsUpdater(stats, zap.NewNop(), 10*time.Millisecond)
	updater.Start(context.Background())
	defer updater.Stop()

	require.Eventually(t, func() bool {
		latest, err := stats.Latest()
		return err == nil && latest.TotalContentItems == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestStatsUpdaterStopWithoutStart(t *testing.T) {
	db := newTestDB(t)
	stats := NewStatsService(db, zap.NewNop())

	// An updater that never ran owns no ticker; stopping it must be safe.
	updater := NewStatsUpdater(stats, zap.NewNop(), time.Minute)
	assert.NotPanics(t, func() { updater.Stop() })
}
