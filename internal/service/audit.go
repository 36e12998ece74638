package service

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
)

// AuditService appends to the audit trail. Entries are write-once; nothing
// here updates or deletes them.
type AuditService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuditService(db *gorm.DB, logger *zap.Logger) *AuditService {
	return &AuditService{
		db:     db,
		logger: logger,
	}
}

// AuditOption customizes an audit entry.
type AuditOption func(*models.AuditEntry)

// WithActor sets the user performing the action.
func WithActor(actorID uint) AuditOption {
	return func(e *models.AuditEntry) {
		e.ActorID = &actorID
	}
}

// WithEntity sets the entity the action touched.
func WithEntity(entityType string, entityID uint) AuditOption {
	return func(e *models.AuditEntry) {
		e.EntityType = entityType
		e.EntityID = &entityID
	}
}

// WithDetails attaches an opaque detail payload.
func WithDetails(details map[string]interface{}) AuditOption {
	return func(e *models.AuditEntry) {
		e.Details = details
	}
}

// Record appends one audit entry.
func (a *AuditService) Record(action string, options ...AuditOption) error {
	entry := &models.AuditEntry{
		ID:     uuid.NewString(),
		Action: action,
	}

	for _, option := range options {
		option(entry)
	}

	if err := a.db.Create(entry).Error; err != nil {
		a.logger.Error("Failed to write audit entry",
			zap.String("action", action),
			zap.Error(err))
		return err
	}
	return nil
}

// List returns recent audit entries, newest first.
func (a *AuditService) List(limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []models.AuditEntry
	if err := a.db.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
