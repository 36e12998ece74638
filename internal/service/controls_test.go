package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/pkg/apperrors"
)

func TestControlActions(t *testing.T) {
	db := newTestDB(t)
	controls := newTestControls(t, db)
	ctx := context.Background()
	actor := uint(7)

	result, err := controls.ExecuteAction(ctx, models.ActionPause, &actor, "maintenance window")
	require.NoError(t, err)
	assert.Equal(t, models.ModeNormal, result.Mode)
	assert.True(t, result.Paused)
	assert.False(t, result.PreviousPaused)

	result, err = controls.ExecuteAction(ctx, models.ActionResume, &actor, "")
	require.NoError(t, err)
	assert.False(t, result.Paused)

	result, err = controls.ExecuteAction(ctx, models.ActionSetCrisis, &actor, "bad press")
	require.NoError(t, err)
	assert.Equal(t, models.ModeCrisis, result.Mode)
	assert.True(t, result.Paused, "crisis must imply paused")

	result, err = controls.ExecuteAction(ctx, models.ActionSetManual, &actor, "")
	require.NoError(t, err)
	assert.Equal(t, models.ModeManual, result.Mode)
	assert.False(t, result.Paused, "entering manual clears the pause flag")

	result, err = controls.ExecuteAction(ctx, models.ActionSetNormal, &actor, "")
	require.NoError(t, err)
	assert.Equal(t, models.ModeNormal, result.Mode)
	assert.False(t, result.Paused)
}

func TestControlActionUnknown(t *testing.T) {
	db := newTestDB(t)
	controls := newTestControls(t, db)

	_, err := controls.ExecuteAction(context.Background(), models.ControlAction("explode"), nil, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func TestControlCapabilities(t *testing.T) {
	db := newTestDB(t)
	controls := newTestControls(t, db)
	ctx := context.Background()

	assert.True(t, controls.CanGenerateContent())
	assert.True(t, controls.CanAutoApprove())
	assert.True(t, controls.CanAutoPost())

	_, err := controls.ExecuteAction(ctx, models.ActionPause, nil, "")
	require.NoError(t, err)
	assert.True(t, controls.CanGenerateContent(), "pause does not stop generation")
	assert.False(t, controls.CanAutoApprove())
	assert.False(t, controls.CanAutoPost())

	_, err = controls.ExecuteAction(ctx, models.ActionSetManual, nil, "")
	require.NoError(t, err)
	assert.True(t, controls.CanGenerateContent())
	assert.False(t, controls.CanAutoPost(), "manual mode requires a human to post")
	blocked, _, _ := controls.Blocked()
	assert.False(t, blocked, "manual mode alone does not block dispatch")

	_, err = controls.ExecuteAction(ctx, models.ActionSetCrisis, nil, "")
	require.NoError(t, err)
	assert.False(t, controls.CanGenerateContent(), "crisis stops generation too")
	blocked, mode, paused := controls.Blocked()
	assert.True(t, blocked)
	assert.Equal(t, models.ModeCrisis, mode)
	assert.True(t, paused)
}

func TestControlConcurrentActions(t *testing.T) {
	db := newTestDB(t)
	controls := newTestControls(t, db)
	ctx := context.Background()

	actions := []models.ControlAction{
		models.ActionPause, models.ActionResume, models.ActionSetManual,
		models.ActionSetCrisis, models.ActionSetNormal,
	}
	const iterations = 4

	var wg sync.WaitGroup
	for i := 0; i < iterations; i++ {
		for _, action := range actions {
			wg.Add(1)
			go func(action models.ControlAction, actor uint) {
				defer wg.Done()
				_, err := controls.ExecuteAction(ctx, action, &actor, "")
				assert.NoError(t, err)
			}(action, uint(i+1))
		}
	}
	wg.Wait()

	// Whatever interleaving won, the final state must be internally
	// consistent: crisis is always paused, manual and normal never are.
	status := controls.Status()
	switch status.Mode {
	case models.ModeCrisis:
		assert.True(t, status.Paused)
	case models.ModeManual:
		// paused may be either: a pause can land after set_manual
	case models.ModeNormal:
		// same
	default:
		t.Fatalf("unexpected mode %q", status.Mode)
	}

	// Every action produced exactly one audit entry.
	var count int64
	require.NoError(t, db.Model(&models.AuditEntry{}).
		Where("entity_type = ?", "system").Count(&count).Error)
	assert.Equal(t, int64(len(actions)*iterations), count)

	var state models.SystemControlState
	require.NoError(t, db.First(&state).Error)
	assert.Equal(t, status.Mode, state.Mode)
	assert.Equal(t, status.Paused, state.Paused)
}

func TestControlObserverFailuresIsolated(t *testing.T) {
	db := newTestDB(t)
	controls := newTestControls(t, db)
	ctx := context.Background()

	var called []string
	controls.RegisterPauseObserver(func(bool) error {
		called = append(called, "failing")
		return errors.New("subscriber broke")
	})
	controls.RegisterPauseObserver(func(bool) error {
		called = append(called, "panicking")
		panic("subscriber panicked")
	})
	controls.RegisterPauseObserver(func(bool) error {
		called = append(called, "healthy")
		return nil
	})

	result, err := controls.ExecuteAction(ctx, models.ActionPause, nil, "")
	require.NoError(t, err)
	assert.True(t, result.Paused)
	assert.Equal(t, []string{"failing", "panicking", "healthy"}, called)
}

func TestControlCrisisNotifiesBothObserverSets(t *testing.T) {
	db := newTestDB(t)
	controls := newTestControls(t, db)

	var pauseSeen, crisisSeen bool
	controls.RegisterPauseObserver(func(paused bool) error {
		pauseSeen = paused
		return nil
	})
	controls.RegisterCrisisObserver(func() error {
		crisisSeen = true
		return nil
	})

	_, err := controls.ExecuteAction(context.Background(), models.ActionSetCrisis, nil, "")
	require.NoError(t, err)
	assert.True(t, pauseSeen)
	assert.True(t, crisisSeen)
}

func TestControlInitializeIdempotent(t *testing.T) {
	db := newTestDB(t)
	logger := zap.NewNop()
	controls := NewControlService(db, logger, NewAuditService(db, logger))
	ctx := context.Background()

	require.NoError(t, controls.Initialize(ctx))
	_, err := controls.ExecuteAction(ctx, models.ActionSetManual, nil, "")
	require.NoError(t, err)

	// A second Initialize reloads the persisted state without resetting it.
	require.NoError(t, controls.Initialize(ctx))
	assert.Equal(t, models.ModeManual, controls.Status().Mode)

	var count int64
	require.NoError(t, db.Model(&models.SystemControlState{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestControlStatePersistsAcrossRestart(t *testing.T) {
	db := newTestDB(t)
	logger := zap.NewNop()
	ctx := context.Background()

	first := NewControlService(db, logger, NewAuditService(db, logger))
	require.NoError(t, first.Initialize(ctx))
	_, err := first.ExecuteAction(ctx, models.ActionSetCrisis, nil, "incident 42")
	require.NoError(t, err)

	second := NewControlService(db, logger, NewAuditService(db, logger))
	require.NoError(t, second.Initialize(ctx))
	status := second.Status()
	assert.Equal(t, models.ModeCrisis, status.Mode)
	assert.True(t, status.Paused)
	assert.Equal(t, "incident 42", status.Notes)
}
