package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/pkg/apperrors"
)

// PauseObserver is invoked when the pause flag flips. A failing observer is
// logged and never blocks the gate mutation or other observers.
type PauseObserver func(paused bool) error

// CrisisObserver is invoked when the system enters crisis mode.
type CrisisObserver func() error

// ControlStatus is a read-only snapshot of the gate.
type ControlStatus struct {
	Mode               models.SystemMode `json:"mode"`
	Paused             bool              `json:"paused"`
	LastUpdatedBy      *uint             `json:"last_updated_by"`
	LastUpdatedAt      time.Time         `json:"last_updated_at"`
	Notes              string            `json:"notes"`
	CanGenerateContent bool              `json:"can_generate_content"`
	CanAutoApprove     bool              `json:"can_auto_approve"`
	CanAutoPost        bool              `json:"can_auto_post"`
}

// ControlResult reports the outcome of one control action.
type ControlResult struct {
	Action         models.ControlAction `json:"action"`
	PreviousMode   models.SystemMode    `json:"previous_mode"`
	PreviousPaused bool                 `json:"previous_paused"`
	Mode           models.SystemMode    `json:"mode"`
	Paused         bool                 `json:"paused"`
	Timestamp      time.Time            `json:"timestamp"`
	// Degraded is set when the action took effect but its durable write
	// could not be confirmed.
	Degraded bool `json:"degraded,omitempty"`
}

// ControlService is the single source of truth for whether automated actions
// are permitted. All mutations funnel through ExecuteAction under one lock;
// concurrent callers queue, they are never rejected.
type ControlService struct {
	db     *gorm.DB
	logger *zap.Logger
	audit  *AuditService

	mu          sync.Mutex
	initialized bool
	mode        models.SystemMode
	paused      bool
	lastBy      *uint
	lastAt      time.Time
	notes       string

	pauseObservers  []PauseObserver
	crisisObservers []CrisisObserver
}

func NewControlService(db *gorm.DB, logger *zap.Logger, audit *AuditService) *ControlService {
	return &ControlService{
		db:     db,
		logger: logger,
		audit:  audit,
		mode:   models.ModeNormal,
	}
}

// Initialize loads the persisted control state, creating the default row
// (normal, unpaused) on first startup. Safe to call more than once; later
// calls only refresh the in-memory fields.
func (s *ControlService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state models.SystemControlState
	err := s.db.WithContext(ctx).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = models.SystemControlState{
			Mode:          models.ModeNormal,
			Paused:        false,
			LastUpdatedAt: time.Now().UTC(),
		}
		if err := s.db.WithContext(ctx).Create(&state).Error; err != nil {
			return apperrors.NewInternal("failed to create system control state", err)
		}
	} else if err != nil {
		return apperrors.NewInternal("failed to load system control state", err)
	}

	s.mode = state.Mode
	s.paused = state.Paused
	s.lastBy = state.LastUpdatedBy
	s.lastAt = state.LastUpdatedAt
	s.notes = state.Notes
	s.initialized = true

	s.logger.Info("System controls initialized",
		zap.String("mode", string(s.mode)),
		zap.Bool("paused", s.paused))

	return nil
}

// RegisterPauseObserver subscribes to pause flag changes.
func (s *ControlService) RegisterPauseObserver(fn PauseObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseObservers = append(s.pauseObservers, fn)
}

// RegisterCrisisObserver subscribes to crisis mode activation.
func (s *ControlService) RegisterCrisisObserver(fn CrisisObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crisisObservers = append(s.crisisObservers, fn)
}

// CanGenerateContent reports whether content generation is permitted.
// Generation keeps running while paused or in manual mode; only crisis mode
// stops it.
func (s *ControlService) CanGenerateContent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode != models.ModeCrisis
}

// CanAutoApprove reports whether automatic approval is permitted.
func (s *ControlService) CanAutoApprove() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode == models.ModeNormal && !s.paused
}

// CanAutoPost reports whether automatic posting is permitted.
func (s *ControlService) CanAutoPost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode == models.ModeNormal && !s.paused
}

// Blocked reports whether dispatch must hold off, with the state that caused
// the block.
func (s *ControlService) Blocked() (bool, models.SystemMode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused || s.mode == models.ModeCrisis, s.mode, s.paused
}

// Status returns a snapshot of the gate.
func (s *ControlService) Status() ControlStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ControlStatus{
		Mode:               s.mode,
		Paused:             s.paused,
		LastUpdatedBy:      s.lastBy,
		LastUpdatedAt:      s.lastAt,
		Notes:              s.notes,
		CanGenerateContent: s.mode != models.ModeCrisis,
		CanAutoApprove:     s.mode == models.ModeNormal && !s.paused,
		CanAutoPost:        s.mode == models.ModeNormal && !s.paused,
	}
}

// ExecuteAction applies one control action. Mode and pause flag always change
// together inside the critical section; a second caller waits for the lock.
// If the durable write fails after the in-memory change, the action is not
// rolled back: the result is returned with Degraded set alongside a
// PersistenceDegraded error.
func (s *ControlService) ExecuteAction(ctx context.Context, action models.ControlAction, actorID *uint, notes string) (*ControlResult, error) {
	if !action.Valid() {
		return nil, apperrors.NewInvalidState("unknown control action: " + string(action))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previousMode := s.mode
	previousPaused := s.paused

	switch action {
	case models.ActionPause:
		s.paused = true
		s.notifyPauseObservers()
	case models.ActionResume:
		s.paused = false
	case models.ActionSetManual:
		// Manual mode is never implicitly paused.
		s.mode = models.ModeManual
		s.paused = false
	case models.ActionSetCrisis:
		// Crisis always implies paused.
		s.mode = models.ModeCrisis
		s.paused = true
		s.notifyPauseObservers()
		s.notifyCrisisObservers()
	case models.ActionSetNormal:
		s.mode = models.ModeNormal
		s.paused = false
	}

	now := time.Now().UTC()
	s.lastBy = actorID
	s.lastAt = now
	s.notes = notes

	result := &ControlResult{
		Action:         action,
		PreviousMode:   previousMode,
		PreviousPaused: previousPaused,
		Mode:           s.mode,
		Paused:         s.paused,
		Timestamp:      now,
	}

	s.logger.Info("Control action executed",
		zap.String("action", string(action)),
		zap.String("mode", string(s.mode)),
		zap.Bool("paused", s.paused),
		zap.Any("actor_id", actorID))

	if err := s.persistLocked(ctx, action, actorID, notes, previousMode, previousPaused); err != nil {
		s.logger.Error("Control state persisted in memory only",
			zap.String("action", string(action)),
			zap.Error(err))
		result.Degraded = true
		return result, apperrors.NewPersistenceDegraded("control action applied but not durably recorded", err)
	}

	return result, nil
}

// persistLocked writes the new control state and its audit entry in one
// transaction. Callers hold s.mu.
func (s *ControlService) persistLocked(ctx context.Context, action models.ControlAction, actorID *uint, notes string, previousMode models.SystemMode, previousPaused bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state models.SystemControlState
		err := tx.First(&state).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			state = models.SystemControlState{}
		} else if err != nil {
			return err
		}

		state.Mode = s.mode
		state.Paused = s.paused
		state.LastUpdatedBy = actorID
		state.LastUpdatedAt = s.lastAt
		state.Notes = notes

		if err := tx.Save(&state).Error; err != nil {
			return err
		}

		entry := &models.AuditEntry{
			ID:         uuid.NewString(),
			ActorID:    actorID,
			Action:     "control_" + string(action),
			EntityType: "system",
			Details: models.JSONMap{
				"previous_mode":   string(previousMode),
				"previous_paused": previousPaused,
				"new_mode":        string(s.mode),
				"new_paused":      s.paused,
				"notes":           notes,
			},
		}
		return tx.Create(entry).Error
	})
}

// notifyPauseObservers runs every pause observer, isolating failures so one
// broken subscriber cannot stop the rest. Callers hold s.mu.
func (s *ControlService) notifyPauseObservers() {
	for _, fn := range s.pauseObservers {
		s.invokeObserver("pause", func() error { return fn(s.paused) })
	}
}

func (s *ControlService) notifyCrisisObservers() {
	s.logger.Warn("CRISIS MODE ACTIVATED - emergency shutdown procedures initiated")
	for _, fn := range s.crisisObservers {
		s.invokeObserver("crisis", fn)
	}
}

func (s *ControlService) invokeObserver(kind string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Observer panicked",
				zap.String("kind", kind),
				zap.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		s.logger.Error("Observer failed",
			zap.String("kind", kind),
			zap.Error(err))
	}
}
