package publisher

import (
	"context"
	"time"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
)

// Content is the payload handed to a platform publisher.
type Content struct {
	ContentID uint              `json:"content_id"`
	Platform  models.Platform   `json:"platform"`
	Body      string            `json:"body"`
	Hashtags  []string          `json:"hashtags"`
	Metadata  map[string]string `json:"metadata"`
}

// Result is the outcome of a single publish attempt. PostID and Metrics are
// set only on success, Error only on failure.
type Result struct {
	Success     bool                   `json:"success"`
	PostID      string                 `json:"post_id,omitempty"`
	Metrics     map[string]interface{} `json:"metrics,omitempty"`
	Error       error                  `json:"error,omitempty"`
	PublishedAt time.Time              `json:"published_at"`
}

// Publisher posts content to one social network. Publish makes exactly one
// attempt; retries are the caller's decision, never the publisher's.
type Publisher interface {
	PlatformName() models.Platform
	Publish(ctx context.Context, content Content) (*Result, error)
}
