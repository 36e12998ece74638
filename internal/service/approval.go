package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/pkg/apperrors"
)

// ApprovalService drives content items through the review cycle. It is the
// only code path, together with the publication service, allowed to change a
// content item's status.
type ApprovalService struct {
	db     *gorm.DB
	logger *zap.Logger
	audit  *AuditService
}

func NewApprovalService(db *gorm.DB, logger *zap.Logger, audit *AuditService) *ApprovalService {
	return &ApprovalService{
		db:     db,
		logger: logger,
		audit:  audit,
	}
}

// SubmitForApproval moves an item into review and opens a pending approval
// record. Items may be submitted from draft or resubmitted directly from
// changes-requested.
func (s *ApprovalService) SubmitForApproval(ctx context.Context, contentID, requesterID uint) (*models.ContentItem, *models.ApprovalRecord, error) {
	var item models.ContentItem
	if err := s.db.WithContext(ctx).First(&item, contentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NewNotFound("content item", contentID)
		}
		return nil, nil, apperrors.NewInternal("failed to load content item", err)
	}

	if item.Status != models.StatusDraft && item.Status != models.StatusChangesRequested {
		return nil, nil, apperrors.NewInvalidState("content item is not submittable, current status: " + string(item.Status))
	}
	if !models.CanTransition(item.Status, models.StatusPendingReview) {
		return nil, nil, apperrors.NewInvalidTransition(string(item.Status), string(models.StatusPendingReview))
	}

	record := &models.ApprovalRecord{
		ContentID:   item.ID,
		RequestedBy: requesterID,
		Status:      models.ApprovalPending,
	}

	previous := item.Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ContentItem{}).
			Where("id = ? AND status = ?", item.ID, previous).
			Update("status", models.StatusPendingReview)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewInvalidState("content item changed status concurrently")
		}
		return tx.Create(record).Error
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, nil, appErr
		}
		return nil, nil, apperrors.NewInternal("failed to submit for approval", err)
	}

	item.Status = models.StatusPendingReview

	s.logger.Info("Content submitted for approval",
		zap.Uint("content_id", item.ID),
		zap.Uint("requester_id", requesterID))

	s.recordAudit("approval_requested", requesterID, item.ID, models.JSONMap{
		"previous_status": string(previous),
		"approval_id":     record.ID,
	})

	return &item, record, nil
}

// ProcessDecision applies a reviewer's decision to a pending approval record
// and its content item. Both rows change together or not at all.
func (s *ApprovalService) ProcessDecision(ctx context.Context, recordID uint, decision models.ApprovalStatus, reviewerID uint, comments string) (*models.ContentItem, *models.ApprovalRecord, error) {
	var target models.ContentStatus
	switch decision {
	case models.ApprovalApproved:
		target = models.StatusApproved
	case models.ApprovalRejected:
		target = models.StatusRejected
	case models.ApprovalChangesRequested:
		target = models.StatusChangesRequested
	default:
		return nil, nil, apperrors.NewInvalidState("invalid decision: " + string(decision))
	}

	var record models.ApprovalRecord
	if err := s.db.WithContext(ctx).First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NewNotFound("approval record", recordID)
		}
		return nil, nil, apperrors.NewInternal("failed to load approval record", err)
	}
	if record.Status != models.ApprovalPending {
		return nil, nil, apperrors.NewAlreadyProcessed("approval record already processed")
	}

	var item models.ContentItem
	if err := s.db.WithContext(ctx).First(&item, record.ContentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NewNotFound("content item", record.ContentID)
		}
		return nil, nil, apperrors.NewInternal("failed to load content item", err)
	}

	if !models.CanTransition(item.Status, target) {
		return nil, nil, apperrors.NewInvalidTransition(string(item.Status), string(target))
	}

	previous := item.Status
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ApprovalRecord{}).
			Where("id = ? AND status = ?", record.ID, models.ApprovalPending).
			Updates(map[string]interface{}{
				"status":      decision,
				"reviewer_id": reviewerID,
				"comments":    comments,
				"decided_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewAlreadyProcessed("approval record already processed")
		}

		res = tx.Model(&models.ContentItem{}).
			Where("id = ? AND status = ?", item.ID, previous).
			Update("status", target)
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
			return nil, nil, appErr
		}
		return nil, nil, apperrors.NewInternal("failed to process decision", err)
	}

	record.Status = decision
	record.ReviewerID = &reviewerID
	record.Comments = comments
	record.DecidedAt = &now
	item.Status = target

	s.logger.Info("Approval decision processed",
		zap.Uint("approval_id", record.ID),
		zap.Uint("content_id", item.ID),
		zap.String("decision", string(decision)),
		zap.Uint("reviewer_id", reviewerID))

	s.recordAudit("approval_"+string(decision), reviewerID, item.ID, models.JSONMap{
		"approval_id":     record.ID,
		"previous_status": string(previous),
		"new_status":      string(target),
	})

	return &item, &record, nil
}

// RequestChanges flags an item as needing rework. An open approval record is
// closed with the change request; without one, a decided record is created
// directly, covering reviewers who intervene outside a pending cycle.
func (s *ApprovalService) RequestChanges(ctx context.Context, contentID, reviewerID uint, comments string) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := s.db.WithContext(ctx).First(&item, contentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("content item", contentID)
		}
		return nil, apperrors.NewInternal("failed to load content item", err)
	}

	if item.Status != models.StatusPendingReview && item.Status != models.StatusChangesRequested {
		return nil, apperrors.NewInvalidState("content item is not reviewable, current status: " + string(item.Status))
	}

	previous := item.Status
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if previous != models.StatusChangesRequested {
			res := tx.Model(&models.ContentItem{}).
				Where("id = ? AND status = ?", item.ID, previous).
				Update("status", models.StatusChangesRequested)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperrors.NewInvalidState("content item changed status concurrently")
			}
		}

		var open models.ApprovalRecord
		err := tx.Where("content_id = ? AND status = ?", item.ID, models.ApprovalPending).
			First(&open).Error
		switch {
		case err == nil:
			return tx.Model(&open).Updates(map[string]interface{}{
				"status":      models.ApprovalChangesRequested,
				"reviewer_id": reviewerID,
				"comments":    comments,
				"decided_at":  now,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			record := &models.ApprovalRecord{
				ContentID:   item.ID,
				RequestedBy: reviewerID,
				ReviewerID:  &reviewerID,
				Status:      models.ApprovalChangesRequested,
				Comments:    comments,
				DecidedAt:   &now,
			}
			return tx.Create(record).Error
		default:
			return err
		}
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.NewInternal("failed to request changes", err)
	}

	item.Status = models.StatusChangesRequested

	s.logger.Info("Changes requested",
		zap.Uint("content_id", item.ID),
		zap.Uint("reviewer_id", reviewerID))

	s.recordAudit("approval_changes_requested", reviewerID, item.ID, models.JSONMap{
		"previous_status": string(previous),
	})

	return &item, nil
}

// Assign attaches a reviewer to an open approval record so it shows up in
// that reviewer's pending queue. Assignment does not decide anything; the
// record stays pending and any reviewer may still process it.
func (s *ApprovalService) Assign(ctx context.Context, recordID, reviewerID uint) (*models.ApprovalRecord, error) {
	var record models.ApprovalRecord
	if err := s.db.WithContext(ctx).First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("approval record", recordID)
		}
		return nil, apperrors.NewInternal("failed to load approval record", err)
	}
	if record.Status != models.ApprovalPending {
		return nil, apperrors.NewAlreadyProcessed("approval record already processed")
	}

	res := s.db.WithContext(ctx).Model(&models.ApprovalRecord{}).
		Where("id = ? AND status = ?", recordID, models.ApprovalPending).
		Update("reviewer_id", reviewerID)
	if res.Error != nil {
		return nil, apperrors.NewInternal("failed to assign reviewer", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewAlreadyProcessed("approval record already processed")
	}
	record.ReviewerID = &reviewerID

	s.logger.Info("Reviewer assigned",
		zap.Uint("approval_id", record.ID),
		zap.Uint("reviewer_id", reviewerID))

	s.recordAudit("approval_assigned", reviewerID, record.ContentID, models.JSONMap{
		"approval_id": record.ID,
	})

	return &record, nil
}

// History returns every approval record for an item, newest first.
func (s *ApprovalService) History(ctx context.Context, contentID uint) ([]models.ApprovalRecord, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ContentItem{}).
		Where("id = ?", contentID).Count(&count).Error; err != nil {
		return nil, apperrors.NewInternal("failed to load content item", err)
	}
	if count == 0 {
		return nil, apperrors.NewNotFound("content item", contentID)
	}

	var records []models.ApprovalRecord
	if err := s.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("requested_at DESC").
		Find(&records).Error; err != nil {
		return nil, apperrors.NewInternal("failed to load approval history", err)
	}
	return records, nil
}

// Pending returns open approval records in FIFO review order, optionally
// filtered to a reviewer already assigned to them.
func (s *ApprovalService) Pending(ctx context.Context, reviewerID *uint) ([]models.ApprovalRecord, error) {
	query := s.db.WithContext(ctx).
		Where("status = ?", models.ApprovalPending)
	if reviewerID != nil {
		query = query.Where("reviewer_id = ?", *reviewerID)
	}

	var records []models.ApprovalRecord
	if err := query.Order("requested_at ASC").Find(&records).Error; err != nil {
		return nil, apperrors.NewInternal("failed to load pending approvals", err)
	}
	return records, nil
}

func (s *ApprovalService) recordAudit(action string, actorID, contentID uint, details models.JSONMap) {
	if err := s.audit.Record(action,
		WithActor(actorID),
		WithEntity("content_item", contentID),
		WithDetails(details),
	); err != nil {
		s.logger.Error("Audit write failed", zap.String("action", action), zap.Error(err))
	}
}
