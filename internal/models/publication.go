package models

import (
	"time"
)

// PublicationStatus is the dispatch status of a scheduled publication.
type PublicationStatus string

const (
	// PublicationPending is waiting for its scheduled time.
	PublicationPending PublicationStatus = "pending"
	// PublicationInFlight marks a publication claimed by a dispatch worker.
	// Only one worker may move a row out of pending, so the external publish
	// call happens at most once per publication.
	PublicationInFlight  PublicationStatus = "in_flight"
	PublicationPublished PublicationStatus = "published"
	PublicationFailed    PublicationStatus = "failed"
	PublicationCancelled PublicationStatus = "cancelled"
)

// Terminal reports whether s allows no further dispatch.
func (s PublicationStatus) Terminal() bool {
	switch s {
	case PublicationPublished, PublicationFailed, PublicationCancelled:
		return true
	}
	return false
}

// ScheduledPublication holds an approved content item until its target time.
// Rows are immutable once terminal; a failed publication is re-queued by
// creating a new row, never by reviving the old one.
type ScheduledPublication struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ContentID    uint              `gorm:"not null;index" json:"content_id"`
	Platform     Platform          `gorm:"not null;size:50" json:"platform"`
	ScheduledFor time.Time         `gorm:"not null;index" json:"scheduled_for"`
	Status       PublicationStatus `gorm:"size:50;default:'pending';index" json:"status"`
	Deferrals    int               `gorm:"default:0" json:"deferrals"`
	PublishedAt  *time.Time        `json:"published_at"`
	PostID       string            `gorm:"size:255" json:"post_id"`
	Metrics      JSONMap           `gorm:"type:jsonb" json:"metrics"`
	Error        string            `gorm:"type:text" json:"error"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	Content ContentItem `gorm:"foreignKey:ContentID" json:"content"`
}
