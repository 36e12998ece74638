package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/config"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, service.Migrate(db))

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	srv, err := newServer(cfg, db, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, srv.Controls.Initialize(t.Context()))
	t.Cleanup(srv.Publications.Stop)

	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "normal", payload["mode"])
}

func TestControlActionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/control/action", gin.H{
		"action":  "pause",
		"user_id": 1,
		"notes":   "maintenance",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/control/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, true, status["paused"])
	assert.Equal(t, false, status["can_auto_post"])
}

func TestControlActionRejectsUnknown(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/control/action", gin.H{
		"action":  "self_destruct",
		"user_id": 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEmergencyEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/control/emergency-pause", gin.H{"user_id": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.Controls.Status().Paused)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/control/crisis-mode", gin.H{"user_id": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ModeCrisis, srv.Controls.Status().Mode)
}

func TestContentLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	// Generate a draft.
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/content/generate", gin.H{
		"platform": "linkedin",
		"topic":    "Quarterly update",
		"context":  "Numbers are up.",
		"user_id":  1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Item models.ContentItem `json:"item"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	itemID := created.Item.ID
	require.NotZero(t, itemID)

	// Submit for review.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/approvals/submit", gin.H{
		"content_id": itemID,
		"user_id":    1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var submitted struct {
		Approval models.ApprovalRecord `json:"approval"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	// Assign a reviewer; the record stays pending and shows in their queue.
	rec = doJSON(t, srv, http.MethodPost,
		fmt.Sprintf("/api/v1/approvals/%d/assign", submitted.Approval.ID), gin.H{
			"reviewer_id": 2,
		})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/approvals/pending?reviewer_id=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var queue struct {
		Pending []models.ApprovalRecord `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue.Pending, 1)
	assert.Equal(t, submitted.Approval.ID, queue.Pending[0].ID)

	// Approve.
	rec = doJSON(t, srv, http.MethodPost,
		fmt.Sprintf("/api/v1/approvals/%d/decision", submitted.Approval.ID), gin.H{
			"decision":    "approved",
			"reviewer_id": 2,
			"comments":    "looks good",
		})
	require.Equal(t, http.StatusOK, rec.Code)

	// The item reports approved with its next legal moves.
	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/content/%d", itemID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Item               models.ContentItem     `json:"item"`
		AllowedTransitions []models.ContentStatus `json:"allowed_transitions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, models.StatusApproved, detail.Item.Status)
	assert.Contains(t, detail.AllowedTransitions, models.StatusScheduled)

	// Schedule it.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/publications/schedule", gin.H{
		"content_id":    itemID,
		"platform":      "linkedin",
		"scheduled_for": time.Now().Add(time.Hour).Format(time.RFC3339),
		"user_id":       1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The audit trail covered the whole journey.
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var audit struct {
		Entries []models.AuditEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &audit))
	assert.GreaterOrEqual(t, len(audit.Entries), 4)
}

func TestSchedulePastTimeRejected(t *testing.T) {
	srv := newTestServer(t)

	item := &models.ContentItem{
		Platform:  models.PlatformLinkedIn,
		Body:      "post body",
		Status:    models.StatusApproved,
		CreatedBy: 1,
	}
	require.NoError(t, srv.DB.Create(item).Error)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/publications/schedule", gin.H{
		"content_id":    item.ID,
		"platform":      "linkedin",
		"scheduled_for": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"user_id":       1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleWhilePausedReturnsLocked(t *testing.T) {
	srv := newTestServer(t)

	item := &models.ContentItem{
		Platform:  models.PlatformLinkedIn,
		Body:      "post body",
		Status:    models.StatusApproved,
		CreatedBy: 1,
	}
	require.NoError(t, srv.DB.Create(item).Error)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/control/emergency-pause", gin.H{"user_id": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/publications/schedule", gin.H{
		"content_id":    item.ID,
		"platform":      "linkedin",
		"scheduled_for": time.Now().Add(time.Hour).Format(time.RFC3339),
		"user_id":       1,
	})
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestGetContentNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/content/99999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/content/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddlewareClosedWithSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	auth := NewAuthService(zap.NewNop(), "JBSWY3DPEHPK3PXP")
	router := gin.New()
	router.Use(auth.Middleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/content", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Health stays open.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// API without a session is refused.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/content", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A session cookie opens it.
	token := auth.CreateSession()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/content", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
