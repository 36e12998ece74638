package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/service"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/pkg/apperrors"
)

// respondError maps service errors onto HTTP responses. Everything the
// services return is an AppError with its own status; anything else is a 500.
func (s *Server) respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, gin.H{"error": appErr})
		return
	}
	s.Logger.Error("Unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": apperrors.CodeInternal, "message": "internal error"}})
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// --- auth ---

type loginRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !s.Auth.ValidateToken(req.Code) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	token := s.Auth.CreateSession()
	c.SetCookie("auth_token", token, int(sessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

// --- content ---

func (s *Server) handleListContent(c *gin.Context) {
	items, err := s.Content.List(c.Request.Context(),
		models.ContentStatus(c.Query("status")),
		models.Platform(c.Query("platform")))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleGetContent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	item, err := s.Content.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item":                item,
		"allowed_transitions": models.AllowedTransitions(item.Status),
	})
}

type generateRequest struct {
	Platform models.Platform `json:"platform" binding:"required"`
	Topic    string          `json:"topic" binding:"required"`
	Context  string          `json:"context"`
	UserID   uint            `json:"user_id" binding:"required"`
}

func (s *Server) handleGenerateContent(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.Generator.Generate(c.Request.Context(), service.GenerateRequest{
		Platform:  req.Platform,
		Topic:     req.Topic,
		Context:   req.Context,
		CreatedBy: req.UserID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// --- approvals ---

type submitRequest struct {
	ContentID uint `json:"content_id" binding:"required"`
	UserID    uint `json:"user_id" binding:"required"`
}

func (s *Server) handleSubmitForApproval(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, record, err := s.Approvals.SubmitForApproval(c.Request.Context(), req.ContentID, req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item, "approval": record})
}

type assignRequest struct {
	ReviewerID uint `json:"reviewer_id" binding:"required"`
}

func (s *Server) handleAssignReviewer(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := s.Approvals.Assign(c.Request.Context(), id, req.ReviewerID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"approval": record})
}

type decisionRequest struct {
	Decision   models.ApprovalStatus `json:"decision" binding:"required"`
	ReviewerID uint                  `json:"reviewer_id" binding:"required"`
	Comments   string                `json:"comments"`
}

func (s *Server) handleProcessDecision(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, record, err := s.Approvals.ProcessDecision(c.Request.Context(), id, req.Decision, req.ReviewerID, req.Comments)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item, "approval": record})
}

type requestChangesRequest struct {
	ContentID  uint   `json:"content_id" binding:"required"`
	ReviewerID uint   `json:"reviewer_id" binding:"required"`
	Comments   string `json:"comments" binding:"required"`
}

func (s *Server) handleRequestChanges(c *gin.Context) {
	var req requestChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.Approvals.RequestChanges(c.Request.Context(), req.ContentID, req.ReviewerID, req.Comments)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (s *Server) handleApprovalHistory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	records, err := s.Approvals.History(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": records})
}

func (s *Server) handlePendingApprovals(c *gin.Context) {
	var reviewerID *uint
	if raw := c.Query("reviewer_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reviewer_id"})
			return
		}
		id := uint(parsed)
		reviewerID = &id
	}

	records, err := s.Approvals.Pending(c.Request.Context(), reviewerID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pending": records})
}

// --- control ---

func (s *Server) handleControlStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Controls.Status())
}

type controlActionRequest struct {
	Action models.ControlAction `json:"action" binding:"required"`
	UserID uint                 `json:"user_id" binding:"required"`
	Notes  string               `json:"notes"`
}

func (s *Server) handleControlAction(c *gin.Context) {
	var req controlActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.executeControl(c, req.Action, req.UserID, req.Notes)
}

type emergencyRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

func (s *Server) handleEmergencyPause(c *gin.Context) {
	var req emergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.executeControl(c, models.ActionPause, req.UserID, "Emergency pause initiated")
}

func (s *Server) handleCrisisMode(c *gin.Context) {
	var req emergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.executeControl(c, models.ActionSetCrisis, req.UserID, "Emergency shutdown initiated")
}

func (s *Server) executeControl(c *gin.Context, action models.ControlAction, userID uint, notes string) {
	result, err := s.Controls.ExecuteAction(c.Request.Context(), action, &userID, notes)
	if err != nil {
		// The action still happened when only persistence degraded; report
		// success with the warning attached instead of a failure the caller
		// would wrongly retry.
		if apperrors.HasCode(err, apperrors.CodePersistenceDegraded) {
			c.JSON(http.StatusOK, gin.H{"result": result, "warning": err.Error()})
			return
		}
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// --- publications ---

type scheduleRequest struct {
	ContentID    uint            `json:"content_id" binding:"required"`
	Platform     models.Platform `json:"platform" binding:"required"`
	ScheduledFor time.Time       `json:"scheduled_for" binding:"required"`
	UserID       uint            `json:"user_id" binding:"required"`
}

func (s *Server) handleSchedulePublication(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pub, err := s.Publications.Schedule(c.Request.Context(), req.ContentID, req.Platform, req.ScheduledFor, req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"publication": pub})
}

func (s *Server) handleListPublications(c *gin.Context) {
	status := models.PublicationStatus(c.Query("status"))

	pubs, err := s.Publications.List(c.Request.Context(), status)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"publications": pubs})
}

func (s *Server) handleCancelPublication(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req emergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pub, err := s.Publications.Cancel(c.Request.Context(), id, req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"publication": pub})
}

type publishNowRequest struct {
	ContentID uint            `json:"content_id" binding:"required"`
	Platform  models.Platform `json:"platform" binding:"required"`
	UserID    uint            `json:"user_id" binding:"required"`
}

func (s *Server) handlePublishNow(c *gin.Context) {
	var req publishNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pub, err := s.Publications.PublishNow(c.Request.Context(), req.ContentID, req.Platform, req.UserID)
	if err != nil {
		// A failed attempt is still a durable outcome worth returning.
		if apperrors.HasCode(err, apperrors.CodeExternalAction) && pub != nil {
			c.JSON(http.StatusBadGateway, gin.H{"publication": pub, "error": err.Error()})
			return
		}
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"publication": pub})
}

// --- audit & stats ---

func (s *Server) handleAuditLog(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := s.Audit.List(limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) handleStats(c *gin.Context) {
	if err := s.Stats.UpdateSystemStats(); err != nil {
		s.respondError(c, err)
		return
	}

	stats, err := s.Stats.Latest()
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
