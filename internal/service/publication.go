package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/service/publisher"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/pkg/apperrors"
)

// PublicationService owns the queue of posts awaiting publication. Every
// publication gets its own dispatch goroutine that waits for the target time,
// re-checks the control gate, claims the row, and makes one publish attempt.
// Dispatch goroutines share no state beyond the gate and the database; row
// mutations are conditional updates keyed on the expected prior status.
type PublicationService struct {
	db       *gorm.DB
	logger   *zap.Logger
	audit    *AuditService
	controls *ControlService
	manager  *publisher.Manager

	blockBackoff   time.Duration
	maxDeferrals   int
	publishTimeout time.Duration

	mu      sync.Mutex
	tracked map[uint]struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewPublicationService(db *gorm.DB, logger *zap.Logger, audit *AuditService, controls *ControlService, manager *publisher.Manager, blockBackoff time.Duration, maxDeferrals int, publishTimeout time.Duration) *PublicationService {
	return &PublicationService{
		db:             db,
		logger:         logger,
		audit:          audit,
		controls:       controls,
		manager:        manager,
		blockBackoff:   blockBackoff,
		maxDeferrals:   maxDeferrals,
		publishTimeout: publishTimeout,
		tracked:        make(map[uint]struct{}),
		stopCh:         make(chan struct{}),
	}
}

// Schedule queues an approved content item for publication at a strictly
// future time and kicks off its dispatch task.
func (s *PublicationService) Schedule(ctx context.Context, contentID uint, platform models.Platform, at time.Time, actorID uint) (*models.ScheduledPublication, error) {
	if !platform.Valid() {
		return nil, apperrors.NewInvalidState("unknown platform: " + string(platform))
	}
	if blocked, mode, paused := s.controls.Blocked(); blocked || !s.controls.CanAutoPost() {
		return nil, apperrors.NewGateBlocked(string(mode), paused)
	}
	if !at.After(time.Now()) {
		return nil, apperrors.NewInvalidTime("scheduled time must be in the future")
	}

	var item models.ContentItem
	if err := s.db.WithContext(ctx).First(&item, contentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("content item", contentID)
		}
		return nil, apperrors.NewInternal("failed to load content item", err)
	}
	if item.Status != models.StatusApproved {
		return nil, apperrors.NewInvalidState("content item must be approved, current status: " + string(item.Status))
	}

	pub, err := s.create(ctx, &item, platform, at)
	if err != nil {
		return nil, err
	}

	s.recordAudit("publication_scheduled", actorID, pub, models.JSONMap{
		"scheduled_for": at.UTC().Format(time.RFC3339),
	})

	s.enqueue(pub.ID)
	return pub, nil
}

// PublishNow schedules an approved item for immediate dispatch and awaits the
// first attempt instead of queuing it. Manual mode allows this: only pause
// and crisis block it, matching hand-driven posting.
func (s *PublicationService) PublishNow(ctx context.Context, contentID uint, platform models.Platform, actorID uint) (*models.ScheduledPublication, error) {
	if !platform.Valid() {
		return nil, apperrors.NewInvalidState("unknown platform: " + string(platform))
	}
	if blocked, mode, paused := s.controls.Blocked(); blocked {
		return nil, apperrors.NewGateBlocked(string(mode), paused)
	}

	var item models.ContentItem
	if err := s.db.WithContext(ctx).First(&item, contentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("content item", contentID)
		}
		return nil, apperrors.NewInternal("failed to load content item", err)
	}
	if item.Status != models.StatusApproved {
		return nil, apperrors.NewInvalidState("content item must be approved, current status: " + string(item.Status))
	}

	pub, err := s.create(ctx, &item, platform, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.recordAudit("publication_publish_now", actorID, pub, nil)

	s.dispatch(ctx, pub.ID)

	var fresh models.ScheduledPublication
	if err := s.db.WithContext(ctx).First(&fresh, pub.ID).Error; err != nil {
		return pub, apperrors.NewInternal("failed to reload publication", err)
	}
	if fresh.Status == models.PublicationFailed {
		return &fresh, apperrors.NewExternalAction("publish attempt failed", errors.New(fresh.Error))
	}
	return &fresh, nil
}

// create inserts the pending publication and moves the item to scheduled in
// one transaction.
func (s *PublicationService) create(ctx context.Context, item *models.ContentItem, platform models.Platform, at time.Time) (*models.ScheduledPublication, error) {
	pub := &models.ScheduledPublication{
		ContentID:    item.ID,
		Platform:     platform,
		ScheduledFor: at.UTC(),
		Status:       models.PublicationPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pub).Error; err != nil {
			return err
		}
		res := tx.Model(&models.ContentItem{}).
			Where("id = ? AND status = ?", item.ID, models.StatusApproved).
			Update("status", models.StatusScheduled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewInvalidState("content item changed status concurrently")
		}
		return nil
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.NewInternal("failed to schedule publication", err)
	}

	s.logger.Info("Publication scheduled",
		zap.Uint("publication_id", pub.ID),
		zap.Uint("content_id", item.ID),
		zap.String("platform", string(platform)),
		zap.Time("scheduled_for", pub.ScheduledFor))

	return pub, nil
}

// Cancel withdraws a pending publication and reverts its item to approved so
// it can be rescheduled. Anything already claimed or terminal is refused.
func (s *PublicationService) Cancel(ctx context.Context, publicationID, actorID uint) (*models.ScheduledPublication, error) {
	var pub models.ScheduledPublication
	if err := s.db.WithContext(ctx).First(&pub, publicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("scheduled publication", publicationID)
		}
		return nil, apperrors.NewInternal("failed to load publication", err)
	}
	if pub.Status != models.PublicationPending {
		return nil, apperrors.NewInvalidState("publication is not pending, current status: " + string(pub.Status))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ScheduledPublication{}).
			Where("id = ? AND status = ?", pub.ID, models.PublicationPending).
			Update("status", models.PublicationCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race against a dispatch claim.
			return apperrors.NewInvalidState("publication is already being dispatched")
		}

		res = tx.Model(&models.ContentItem{}).
			Where("id = ? AND status = ?", pub.ContentID, models.StatusScheduled).
			Update("status", models.StatusApproved)
		return res.Error
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.NewInternal("failed to cancel publication", err)
	}

	pub.Status = models.PublicationCancelled

	s.logger.Info("Publication cancelled",
		zap.Uint("publication_id", pub.ID),
		zap.Uint("actor_id", actorID))

	s.recordAudit("publication_cancelled", actorID, &pub, nil)

	return &pub, nil
}

// List returns publications, optionally filtered by status, soonest first.
func (s *PublicationService) List(ctx context.Context, status models.PublicationStatus) ([]models.ScheduledPublication, error) {
	query := s.db.WithContext(ctx).Model(&models.ScheduledPublication{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var pubs []models.ScheduledPublication
	if err := query.Order("scheduled_for ASC").Find(&pubs).Error; err != nil {
		return nil, apperrors.NewInternal("failed to list publications", err)
	}
	return pubs, nil
}

// EnqueuePending starts dispatch tasks for due pending publications that have
// none yet. Run at startup and by the sweeper so deferred and restart-orphaned
// rows get a fresh task once their time arrives. Rows still waiting on a
// future slot are left alone: a gate-blocked row deferred out of the sweep
// window is only picked up again after its backoff elapses, so deferrals
// accrue at the backoff interval, not the sweep interval.
func (s *PublicationService) EnqueuePending(ctx context.Context) error {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.ScheduledPublication{}).
		Where("status = ? AND scheduled_for <= ?", models.PublicationPending, time.Now().UTC()).
		Pluck("id", &ids).Error; err != nil {
		return err
	}

	for _, id := range ids {
		s.enqueue(id)
	}
	return nil
}

// Stop waits for in-flight dispatch tasks to finish. Tasks still waiting on
// their timer exit immediately; their rows stay pending for the next startup.
func (s *PublicationService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Publication dispatcher stopped")
}

// enqueue starts the dispatch goroutine for one publication unless one is
// already tracking it.
func (s *PublicationService) enqueue(publicationID uint) {
	s.mu.Lock()
	if _, exists := s.tracked[publicationID]; exists {
		s.mu.Unlock()
		return
	}
	s.tracked[publicationID] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.tracked, publicationID)
			s.mu.Unlock()
		}()
		s.dispatch(context.Background(), publicationID)
	}()
}

// dispatch runs one attempt for one publication: re-fetch, gate check, wait,
// claim, publish, record. Exits quietly whenever the row has left pending,
// which covers concurrent cancellation and duplicate tasks.
func (s *PublicationService) dispatch(ctx context.Context, publicationID uint) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Dispatch panicked",
				zap.Uint("publication_id", publicationID),
				zap.Any("panic", r))
			s.markFailed(publicationID, fmt.Sprintf("dispatch panic: %v", r))
		}
	}()

	for {
		var pub models.ScheduledPublication
		if err := s.db.WithContext(ctx).First(&pub, publicationID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Error("Dispatch failed to load publication",
					zap.Uint("publication_id", publicationID),
					zap.Error(err))
			}
			return
		}
		if pub.Status != models.PublicationPending {
			return
		}

		// Gate check at dispatch time: defer, never fail, while blocked.
		if blocked, mode, paused := s.controls.Blocked(); blocked {
			s.deferBlocked(&pub, mode, paused)
			return
		}

		if wait := time.Until(pub.ScheduledFor); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
				// Loop back: re-fetch and re-check the gate at wake time.
				continue
			case <-s.stopCh:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}

		s.attempt(ctx, &pub)
		return
	}
}

// deferBlocked pushes a gate-blocked publication forward by the backoff
// interval, up to the deferral bound, after which it is failed so nothing
// reschedules silently forever.
func (s *PublicationService) deferBlocked(pub *models.ScheduledPublication, mode models.SystemMode, paused bool) {
	if pub.Deferrals >= s.maxDeferrals {
		s.logger.Warn("Publication exceeded deferral bound while gate blocked",
			zap.Uint("publication_id", pub.ID),
			zap.Int("deferrals", pub.Deferrals))
		s.markFailed(pub.ID, fmt.Sprintf("gate blocked for too long (mode=%s, paused=%t)", mode, paused))
		return
	}

	newTime := pub.ScheduledFor.Add(s.blockBackoff)
	// A long-overdue row pushes from now instead, otherwise it would still be
	// due and get deferred again on the very next sweep.
	if now := time.Now().UTC(); newTime.Before(now) {
		newTime = now.Add(s.blockBackoff)
	}
	res := s.db.Model(&models.ScheduledPublication{}).
		Where("id = ? AND status = ?", pub.ID, models.PublicationPending).
		Updates(map[string]interface{}{
			"scheduled_for": newTime,
			"deferrals":     pub.Deferrals + 1,
		})
	if res.Error != nil {
		s.logger.Error("Failed to defer blocked publication",
			zap.Uint("publication_id", pub.ID),
			zap.Error(res.Error))
		return
	}

	s.logger.Info("Publication deferred while gate blocked",
		zap.Uint("publication_id", pub.ID),
		zap.String("mode", string(mode)),
		zap.Bool("paused", paused),
		zap.Time("rescheduled_for", newTime))
}

// attempt claims the publication and makes the single external publish call.
func (s *PublicationService) attempt(ctx context.Context, pub *models.ScheduledPublication) {
	// Claim pending -> in_flight so two tasks can never both reach the
	// external call for the same publication.
	res := s.db.Model(&models.ScheduledPublication{}).
		Where("id = ? AND status = ?", pub.ID, models.PublicationPending).
		Update("status", models.PublicationInFlight)
	if res.Error != nil {
		s.logger.Error("Failed to claim publication",
			zap.Uint("publication_id", pub.ID),
			zap.Error(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		// Someone else owns it now; already being handled.
		return
	}

	var item models.ContentItem
	if err := s.db.WithContext(ctx).First(&item, pub.ContentID).Error; err != nil {
		s.markFailed(pub.ID, fmt.Sprintf("content item unavailable: %v", err))
		return
	}

	pluggable, err := s.manager.Get(pub.Platform)
	if err != nil {
		s.markFailed(pub.ID, err.Error())
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	result, err := pluggable.Publish(publishCtx, publisher.Content{
		ContentID: item.ID,
		Platform:  pub.Platform,
		Body:      item.Body,
		Hashtags:  item.Hashtags,
	})
	if err != nil {
		s.markFailed(pub.ID, err.Error())
		return
	}
	if !result.Success {
		detail := "publish rejected by platform"
		if result.Error != nil {
			detail = result.Error.Error()
		}
		s.markFailed(pub.ID, detail)
		return
	}

	s.recordSuccess(pub, &item, result)
}

// recordSuccess commits the terminal published state for publication and item.
func (s *PublicationService) recordSuccess(pub *models.ScheduledPublication, item *models.ContentItem, result *publisher.Result) {
	publishedAt := result.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ScheduledPublication{}).
			Where("id = ? AND status = ?", pub.ID, models.PublicationInFlight).
			Updates(map[string]interface{}{
				"status":       models.PublicationPublished,
				"published_at": publishedAt,
				"post_id":      result.PostID,
				"metrics":      models.JSONMap(result.Metrics),
			})
		if res.Error != nil {
			return res.Error
		}

		res = tx.Model(&models.ContentItem{}).
			Where("id = ? AND status = ?", item.ID, models.StatusScheduled).
			Update("status", models.StatusPublished)
		return res.Error
	})
	if err != nil {
		// The external post exists; losing the record would orphan it.
		s.logger.Error("Publish succeeded but outcome write failed, leaving row in_flight for reconciliation",
			zap.Uint("publication_id", pub.ID),
			zap.String("post_id", result.PostID),
			zap.Error(err))
		return
	}

	s.logger.Info("Publication published",
		zap.Uint("publication_id", pub.ID),
		zap.Uint("content_id", item.ID),
		zap.String("platform", string(pub.Platform)),
		zap.String("post_id", result.PostID))

	s.recordAudit("publication_published", 0, pub, models.JSONMap{
		"post_id": result.PostID,
	})
}

// markFailed commits the terminal failed state with the captured error. The
// parent item stays scheduled: a failed post needs a human, not an automatic
// status rollback. Persistence failures here are logged, never swallowed.
func (s *PublicationService) markFailed(publicationID uint, detail string) {
	res := s.db.Model(&models.ScheduledPublication{}).
		Where("id = ? AND status IN ?", publicationID,
			[]models.PublicationStatus{models.PublicationPending, models.PublicationInFlight}).
		Updates(map[string]interface{}{
			"status": models.PublicationFailed,
			"error":  detail,
		})
	if res.Error != nil {
		s.logger.Error("Failed to record publication failure",
			zap.Uint("publication_id", publicationID),
			zap.String("detail", detail),
			zap.Error(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		return
	}

	s.logger.Error("Publication failed",
		zap.Uint("publication_id", publicationID),
		zap.String("detail", detail))
}

func (s *PublicationService) recordAudit(action string, actorID uint, pub *models.ScheduledPublication, details models.JSONMap) {
	options := []AuditOption{
		WithEntity("scheduled_publication", pub.ID),
	}
	if actorID != 0 {
		options = append(options, WithActor(actorID))
	}
	if details == nil {
		details = models.JSONMap{}
	}
	details["content_id"] = pub.ContentID
	details["platform"] = string(pub.Platform)
	options = append(options, WithDetails(details))

	if err := s.audit.Record(action, options...); err != nil {
		s.logger.Error("Audit write failed", zap.String("action", action), zap.Error(err))
	}
}
