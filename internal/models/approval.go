package models

import (
	"time"
)

// ApprovalStatus is the decision status of an approval record.
type ApprovalStatus string

const (
	ApprovalPending          ApprovalStatus = "pending"
	ApprovalApproved         ApprovalStatus = "approved"
	ApprovalRejected         ApprovalStatus = "rejected"
	ApprovalChangesRequested ApprovalStatus = "changes_requested"
)

// ApprovalRecord captures one review cycle of a content item. At most one
// record per item is pending at a time; decided records are never mutated
// again, a new cycle creates a new record.
type ApprovalRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ContentID   uint           `gorm:"not null;index" json:"content_id"`
	RequestedBy uint           `gorm:"not null" json:"requested_by"`
	Status      ApprovalStatus `gorm:"size:50;default:'pending';index" json:"status"`
	ReviewerID  *uint          `json:"reviewer_id"`
	Comments    string         `gorm:"type:text" json:"comments"`
	RequestedAt time.Time      `gorm:"autoCreateTime" json:"requested_at"`
	DecidedAt   *time.Time     `json:"decided_at"`

	Content ContentItem `gorm:"foreignKey:ContentID" json:"content"`
}
