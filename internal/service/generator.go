package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/pkg/apperrors"
)

// GenerateRequest asks for a new draft for one platform.
type GenerateRequest struct {
	Platform  models.Platform `json:"platform" binding:"required"`
	Topic     string          `json:"topic" binding:"required"`
	Context   string          `json:"context"`
	CreatedBy uint            `json:"-"`
}

// DraftContent is what a text producer returns.
type DraftContent struct {
	Body     string
	Hashtags []string
	Context  models.JSONMap
}

// TextProducer supplies the text payload for a draft. The real producer is an
// external collaborator (an LLM pipeline); the orchestrator only cares about
// this boundary.
type TextProducer interface {
	Compose(ctx context.Context, req GenerateRequest) (*DraftContent, error)
}

// GeneratorService creates content items in draft, gated by the control
// service: generation runs in every mode except crisis.
type GeneratorService struct {
	db       *gorm.DB
	logger   *zap.Logger
	audit    *AuditService
	controls *ControlService
	producer TextProducer
}

func NewGeneratorService(db *gorm.DB, logger *zap.Logger, audit *AuditService, controls *ControlService, producer TextProducer) *GeneratorService {
	return &GeneratorService{
		db:       db,
		logger:   logger,
		audit:    audit,
		controls: controls,
		producer: producer,
	}
}

// Generate produces one draft content item.
func (s *GeneratorService) Generate(ctx context.Context, req GenerateRequest) (*models.ContentItem, error) {
	if !req.Platform.Valid() {
		return nil, apperrors.NewInvalidState("unknown platform: " + string(req.Platform))
	}
	if !s.controls.CanGenerateContent() {
		status := s.controls.Status()
		return nil, apperrors.NewGateBlocked(string(status.Mode), status.Paused)
	}

	draft, err := s.producer.Compose(ctx, req)
	if err != nil {
		return nil, apperrors.NewExternalAction("content producer failed", err)
	}

	item := &models.ContentItem{
		Platform:         req.Platform,
		Body:             draft.Body,
		Hashtags:         draft.Hashtags,
		Status:           models.StatusDraft,
		GeneratedContext: draft.Context,
		CreatedBy:        req.CreatedBy,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, apperrors.NewInternal("failed to store draft", err)
	}

	s.logger.Info("Draft generated",
		zap.Uint("content_id", item.ID),
		zap.String("platform", string(req.Platform)),
		zap.String("topic", req.Topic))

	if err := s.audit.Record("content_generated",
		WithActor(req.CreatedBy),
		WithEntity("content_item", item.ID),
		WithDetails(models.JSONMap{"platform": string(req.Platform), "topic": req.Topic}),
	); err != nil {
		s.logger.Error("Audit write failed", zap.Error(err))
	}

	return item, nil
}

// TemplateProducer is the built-in producer: deterministic platform-flavored
// copy, good enough for drafts a human will edit in review.
type TemplateProducer struct {
	Author string
}

func (p *TemplateProducer) Compose(_ context.Context, req GenerateRequest) (*DraftContent, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is empty")
	}

	var body string
	var hashtags []string
	switch req.Platform {
	case models.PlatformLinkedIn:
		body = fmt.Sprintf("Some thoughts on %s.\n\n%s\n\nWhat has your experience been?", topic, req.Context)
		hashtags = []string{tagify(topic), "leadership", "growth"}
	case models.PlatformTwitter:
		body = fmt.Sprintf("%s — %s", topic, firstSentence(req.Context))
		hashtags = []string{tagify(topic)}
	default:
		body = fmt.Sprintf("%s\n\n%s", topic, req.Context)
		hashtags = []string{tagify(topic), "community"}
	}

	return &DraftContent{
		Body:     strings.TrimSpace(body),
		Hashtags: hashtags,
		Context: models.JSONMap{
			"producer": "template",
			"author":   p.Author,
			"topic":    topic,
		},
	}, nil
}

func tagify(topic string) string {
	tag := strings.ToLower(topic)
	tag = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, tag)
	if tag == "" {
		tag = "update"
	}
	return tag
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?"); idx >= 0 {
		return text[:idx+1]
	}
	return text
}
