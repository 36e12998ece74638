package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/config"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/service"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/service/publisher"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Auth         *AuthService
	Audit        *service.AuditService
	Controls     *service.ControlService
	Content      *service.ContentService
	Approvals    *service.ApprovalService
	Publications *service.PublicationService
	Generator    *service.GeneratorService
	Stats        *service.StatsService
	Sweeper      *service.Sweeper
	StatsUpdater *service.StatsUpdater
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return newServer(cfg, db, logger)
}

// newServer wires everything on an already-open database, which also serves
// the tests.
func newServer(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*Server, error) {
	blockBackoff, err := time.ParseDuration(cfg.Dispatch.BlockBackoff)
	if err != nil {
		return nil, fmt.Errorf("invalid block_backoff: %w", err)
	}
	publishTimeout, err := time.ParseDuration(cfg.Dispatch.PublishTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid publish_timeout: %w", err)
	}
	sweepInterval, err := time.ParseDuration(cfg.Dispatch.SweepInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep_interval: %w", err)
	}
	statsInterval, err := time.ParseDuration(cfg.Dispatch.StatsInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid stats_interval: %w", err)
	}

	audit := service.NewAuditService(db, logger)
	controls := service.NewControlService(db, logger, audit)
	approvals := service.NewApprovalService(db, logger, audit)

	manager := publisher.NewManager(logger)
	for _, platform := range models.Platforms() {
		if err := manager.Register(publisher.NewSimulated(platform, logger)); err != nil {
			return nil, fmt.Errorf("failed to register publisher: %w", err)
		}
	}

	publications := service.NewPublicationService(db, logger, audit, controls, manager,
		blockBackoff, cfg.Dispatch.MaxDeferrals, publishTimeout)
	generator := service.NewGeneratorService(db, logger, audit, controls,
		&service.TemplateProducer{Author: cfg.Generator.Author})
	stats := service.NewStatsService(db, logger)

	// Create router
	router := gin.New()

	srv := &Server{
		Config:       cfg,
		DB:           db,
		Router:       router,
		Logger:       logger,
		Auth:         NewAuthService(logger, cfg.Auth.TOTPSecret),
		Audit:        audit,
		Controls:     controls,
		Content:      service.NewContentService(db, logger),
		Approvals:    approvals,
		Publications: publications,
		Generator:    generator,
		Stats:        stats,
		Sweeper:      service.NewSweeper(sweepInterval, logger, publications),
		StatsUpdater: service.NewStatsUpdater(stats, logger, statsInterval),
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.Router.Use(s.Auth.Middleware())
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		status := s.Controls.Status()
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
			"mode":   status.Mode,
			"paused": status.Paused,
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", s.handleLogin)
		}

		content := api.Group("/content")
		{
			content.GET("", s.handleListContent)
			content.GET("/:id", s.handleGetContent)
			content.POST("/generate", s.handleGenerateContent)
			content.GET("/:id/history", s.handleApprovalHistory)
		}

		approvals := api.Group("/approvals")
		{
			approvals.POST("/submit", s.handleSubmitForApproval)
			approvals.POST("/:id/assign", s.handleAssignReviewer)
			approvals.POST("/:id/decision", s.handleProcessDecision)
			approvals.POST("/request-changes", s.handleRequestChanges)
			approvals.GET("/pending", s.handlePendingApprovals)
		}

		control := api.Group("/control")
		{
			control.GET("/status", s.handleControlStatus)
			control.POST("/action", s.handleControlAction)
			control.POST("/emergency-pause", s.handleEmergencyPause)
			control.POST("/crisis-mode", s.handleCrisisMode)
		}

		publications := api.Group("/publications")
		{
			publications.POST("/schedule", s.handleSchedulePublication)
			publications.GET("", s.handleListPublications)
			publications.POST("/:id/cancel", s.handleCancelPublication)
			publications.POST("/publish-now", s.handlePublishNow)
		}

		api.GET("/audit", s.handleAuditLog)
		api.GET("/stats", s.handleStats)
	}
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.Controls.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize system controls: %w", err)
	}

	// Operational visibility when the gate flips; dispatch tasks pick the
	// change up at their next gate check.
	s.Controls.RegisterPauseObserver(func(paused bool) error {
		pending, err := s.Publications.List(ctx, models.PublicationPending)
		if err != nil {
			return err
		}
		s.Logger.Info("Pause state changed",
			zap.Bool("paused", paused),
			zap.Int("pending_publications", len(pending)))
		return nil
	})
	s.Controls.RegisterCrisisObserver(func() error {
		pending, err := s.Publications.List(ctx, models.PublicationPending)
		if err != nil {
			return err
		}
		s.Logger.Warn("Crisis mode engaged, pending publications will be deferred",
			zap.Int("pending_publications", len(pending)))
		return nil
	})

	s.Sweeper.Start(ctx)
	s.StatsUpdater.Start(ctx)

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background work first so nothing dispatches mid-shutdown
	s.Sweeper.Stop()
	s.StatsUpdater.Stop()
	s.Publications.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
