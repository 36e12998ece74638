package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/pkg/apperrors"
)

// ContentService serves read access to content items. Status mutations stay
// with the approval and publication coordinators.
type ContentService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewContentService(db *gorm.DB, logger *zap.Logger) *ContentService {
	return &ContentService{
		db:     db,
		logger: logger,
	}
}

// List returns content items newest first, optionally filtered by status and
// platform.
func (s *ContentService) List(ctx context.Context, status models.ContentStatus, platform models.Platform) ([]models.ContentItem, error) {
	query := s.db.WithContext(ctx).Model(&models.ContentItem{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}

	var items []models.ContentItem
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, apperrors.NewInternal("failed to list content items", err)
	}
	return items, nil
}

// Get returns one content item.
func (s *ContentService) Get(ctx context.Context, id uint) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("content item", id)
		}
		return nil, apperrors.NewInternal("failed to load content item", err)
	}
	return &item, nil
}
