package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Platform identifies a target social network.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
)

// Platforms lists every supported network.
func Platforms() []Platform {
	return []Platform{PlatformLinkedIn, PlatformInstagram, PlatformTwitter}
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformLinkedIn, PlatformInstagram, PlatformTwitter:
		return true
	}
	return false
}

// ContentStatus is the lifecycle status of a content item.
type ContentStatus string

const (
	StatusDraft            ContentStatus = "draft"
	StatusPendingReview    ContentStatus = "pending_review"
	StatusApproved         ContentStatus = "approved"
	StatusRejected         ContentStatus = "rejected"
	StatusChangesRequested ContentStatus = "changes_requested"
	StatusScheduled        ContentStatus = "scheduled"
	StatusPublished        ContentStatus = "published"
	StatusCancelled        ContentStatus = "cancelled"
	StatusArchived         ContentStatus = "archived"
)

// StringArray represents a PostgreSQL text[] type
type StringArray []string

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		// Handle PostgreSQL array format: {value1,value2,value3}
		trimmed := strings.Trim(v, "{}")
		if trimmed == "" {
			*s = StringArray{}
			return nil
		}

		parts := strings.Split(trimmed, ",")
		result := make([]string, len(parts))
		for i, part := range parts {
			result[i] = strings.Trim(strings.TrimSpace(part), "\"")
		}
		*s = result
		return nil
	case []byte:
		// Try to parse as JSON first
		var arr []string
		if err := json.Unmarshal(v, &arr); err == nil {
			*s = arr
			return nil
		}
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	quoted := make([]string, len(s))
	for i, v := range s {
		escaped := strings.ReplaceAll(v, "\"", "\\\"")
		quoted[i] = fmt.Sprintf("\"%s\"", escaped)
	}

	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

// JSONMap represents an opaque JSON object column
type JSONMap map[string]interface{}

// Scan implements the sql.Scanner interface
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// Value implements the driver.Valuer interface
func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return json.Marshal(m)
}

// ContentItem is a unit of generated content moving through review to
// publication. Items are never deleted; StatusArchived is the terminal
// substitute for deletion.
type ContentItem struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	Platform         Platform      `gorm:"not null;size:50;index" json:"platform"`
	Body             string        `gorm:"type:text" json:"body"`
	Hashtags         StringArray   `gorm:"type:text[]" json:"hashtags"`
	Status           ContentStatus `gorm:"size:50;default:'draft';index" json:"status"`
	GeneratedContext JSONMap       `gorm:"type:jsonb" json:"generated_context"`
	CreatedBy        uint          `gorm:"not null;index" json:"created_by"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}
