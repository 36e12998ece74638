package models

import (
	"time"
)

// SystemStats is a daily rollup of lifecycle activity, one row per day.
type SystemStats struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Date                  time.Time `gorm:"uniqueIndex;not null" json:"date"`
	TotalContentItems     int       `gorm:"default:0" json:"total_content_items"`
	DraftItems            int       `gorm:"default:0" json:"draft_items"`
	PendingReviewItems    int       `gorm:"default:0" json:"pending_review_items"`
	ApprovedItems         int       `gorm:"default:0" json:"approved_items"`
	PublishedItems        int       `gorm:"default:0" json:"published_items"`
	PendingApprovals      int       `gorm:"default:0" json:"pending_approvals"`
	PendingPublications   int       `gorm:"default:0" json:"pending_publications"`
	PublishedPublications int       `gorm:"default:0" json:"published_publications"`
	FailedPublications    int       `gorm:"default:0" json:"failed_publications"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
