package audit

import (
	"time"

	"github.com/google/uuid"
)

// maxTitleRunes bounds the title kept in an audit record.
const maxTitleRunes = 200

// NewEvent creates a new audit event stamped with the current time.
func NewEvent() *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}
}

// WithActor adds the session owner.
func (e *Event) WithActor(username, role string) *Event {
	e.Username = username
	e.Role = role
	return e
}

// WithArticle adds the article title and publish type.
func (e *Event) WithArticle(title, publishType string) *Event {
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	e.Title = title
	e.PublishType = publishType
	return e
}

// WithModeration adds the moderation verdict.
func (e *Event) WithModeration(conclusion string, bypassed bool) *Event {
	e.ModerationConclusion = conclusion
	e.ModerationBypassed = bypassed
	return e
}

// WithPost adds the created post.
func (e *Event) WithPost(postID int64, cmsStatus string) *Event {
	e.PostID = &postID
	e.CMSStatus = cmsStatus
	return e
}

// WithResult adds outcome information to the event.
func (e *Event) WithResult(success bool, errorKind, errorMsg string, durationMS int64) *Event {
	e.Success = success
	e.ErrorKind = errorKind
	e.ErrorMessage = errorMsg
	e.DurationMS = durationMS
	return e
}

// WithRequestID adds a request ID to the event.
func (e *Event) WithRequestID(requestID string) *Event {
	e.RequestID = requestID
	return e
}
