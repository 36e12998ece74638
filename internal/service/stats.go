package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
)

// StatsService maintains the daily activity rollup.
type StatsService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStatsService(db *gorm.DB, logger *zap.Logger) *StatsService {
	return &StatsService{
		db:     db,
		logger: logger,
	}
}

// UpdateSystemStats recomputes today's rollup row.
func (s *StatsService) UpdateSystemStats() error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	count := func(model interface{}, query string, args ...interface{}) int64 {
		var n int64
		q := s.db.Model(model)
		if query != "" {
			q = q.Where(query, args...)
		}
		q.Count(&n)
		return n
	}

	values := map[string]interface{}{
		"total_content_items":    count(&models.ContentItem{}, ""),
		"draft_items":            count(&models.ContentItem{}, "status = ?", models.StatusDraft),
		"pending_review_items":   count(&models.ContentItem{}, "status = ?", models.StatusPendingReview),
		"approved_items":         count(&models.ContentItem{}, "status = ?", models.StatusApproved),
		"published_items":        count(&models.ContentItem{}, "status = ?", models.StatusPublished),
		"pending_approvals":      count(&models.ApprovalRecord{}, "status = ?", models.ApprovalPending),
		"pending_publications":   count(&models.ScheduledPublication{}, "status = ?", models.PublicationPending),
		"published_publications": count(&models.ScheduledPublication{}, "status = ?", models.PublicationPublished),
		"failed_publications":    count(&models.ScheduledPublication{}, "status = ?", models.PublicationFailed),
	}

	var stats models.SystemStats
	err := s.db.Where("date = ?", today).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.SystemStats{Date: today}
		if err := s.db.Create(&stats).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return s.db.Model(&stats).Updates(values).Error
}

// Latest returns the most recent rollup row.
func (s *StatsService) Latest() (*models.SystemStats, error) {
	var stats models.SystemStats
	if err := s.db.Order("date DESC").First(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// StatsUpdater runs the rollup periodically.
type StatsUpdater struct {
	statsService *StatsService
	logger       *zap.Logger
	interval     time.Duration
	ticker       *time.Ticker
	done         chan bool
}

func NewStatsUpdater(statsService *StatsService, logger *zap.Logger, interval time.Duration) *StatsUpdater {
	return &StatsUpdater{
		statsService: statsService,
		logger:       logger,
		interval:     interval,
		done:         make(chan bool),
	}
}

// Start begins the periodic stats update process
func (s *StatsUpdater) Start(ctx context.Context) {
	s.ticker = time.NewTicker(s.interval)

	go func() {
		s.logger.Info("Starting stats updater")
		for {
			select {
			case <-s.done:
				s.logger.Info("Stats updater stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Stats updater stopped due to context cancellation")
				return
			case <-s.ticker.C:
				if err := s.statsService.UpdateSystemStats(); err != nil {
					s.logger.Error("Failed to update system stats", zap.Error(err))
				}
			}
		}
	}()
}

// Stop stops the stats updater
func (s *StatsUpdater) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
}
