// Package audit records every publish attempt: who sent it, what the
// moderation gate decided, and what the CMS returned.
package audit

import (
	"context"
	"time"
)

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query retrieves audit events matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// Event represents one publish attempt.
type Event struct {
	ID                   string    `json:"id"`
	Timestamp            time.Time `json:"timestamp"`
	DurationMS           int64     `json:"duration_ms"`
	RequestID            string    `json:"request_id,omitempty"`
	Username             string    `json:"username"`
	Role                 string    `json:"role"`
	Title                string    `json:"title"`
	PublishType          string    `json:"publish_type"`
	ModerationConclusion string    `json:"moderation_conclusion,omitempty"`
	ModerationBypassed   bool      `json:"moderation_bypassed"`
	PostID               *int64    `json:"post_id,omitempty"`
	CMSStatus            string    `json:"cms_status,omitempty"`
	Success              bool      `json:"success"`
	ErrorKind            string    `json:"error_kind,omitempty"`
	ErrorMessage         string    `json:"error_message,omitempty"`
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Username  string
	Success   *bool
	Limit     int
	Offset    int
}

// Matches reports whether e satisfies the filter, ignoring Limit and Offset.
func (f QueryFilter) Matches(e Event) bool {
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	if f.Username != "" && e.Username != f.Username {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	return true
}

// Config configures audit logging.
type Config struct {
	Enabled        bool
	MemoryCapacity int
	RetentionDays  int
}
