package models

import (
	"time"
)

// SystemMode governs whether automated actions are permitted.
type SystemMode string

const (
	// ModeNormal allows full automation.
	ModeNormal SystemMode = "normal"
	// ModeManual keeps generation running but requires human approval and
	// posting.
	ModeManual SystemMode = "manual"
	// ModeCrisis is the emergency shutdown: nothing automated runs, pause is
	// forced on.
	ModeCrisis SystemMode = "crisis"
)

// ControlAction is a mutation applied to the system control state.
type ControlAction string

const (
	ActionPause     ControlAction = "pause"
	ActionResume    ControlAction = "resume"
	ActionSetManual ControlAction = "set_manual"
	ActionSetCrisis ControlAction = "set_crisis"
	ActionSetNormal ControlAction = "set_normal"
)

// Valid reports whether a is a known control action.
func (a ControlAction) Valid() bool {
	switch a {
	case ActionPause, ActionResume, ActionSetManual, ActionSetCrisis, ActionSetNormal:
		return true
	}
	return false
}

// SystemControlState is the singleton mode/pause record. Exactly one row
// exists; every mutation goes through the control service.
type SystemControlState struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Mode          SystemMode `gorm:"size:50;default:'normal'" json:"mode"`
	Paused        bool       `gorm:"default:false" json:"paused"`
	LastUpdatedBy *uint      `json:"last_updated_by"`
	LastUpdatedAt time.Time  `json:"last_updated_at"`
	Notes         string     `gorm:"type:text" json:"notes"`
}

// AuditEntry is an append-only record of a control mutation or approval
// decision. Entries are never updated or deleted.
type AuditEntry struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ActorID    *uint     `gorm:"index" json:"actor_id"`
	Action     string    `gorm:"not null;size:100;index" json:"action"`
	EntityType string    `gorm:"size:50" json:"entity_type"`
	EntityID   *uint     `json:"entity_id"`
	Details    JSONMap   `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
