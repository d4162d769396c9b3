package publish

import "errors"

// Sentinel errors. Each maps to an error_kind in the response envelope.
var (
	ErrInvalidRequest        = errors.New("invalid publish request")
	ErrModerationRejected    = errors.New("blocked by content moderation")
	ErrModerationUnavailable = errors.New("content moderation unavailable")
	ErrPublishFailed         = errors.New("cms publish failed")
)

// Error kinds reported to clients.
const (
	KindInvalidRequest        = "invalid_request"
	KindModerationRejected    = "moderation_rejected"
	KindModerationUnknown     = "moderation_unknown"
	KindModerationUnavailable = "moderation_unavailable"
	KindPublishFailed         = "publish_failed"
)

// Kind returns the error_kind for err, or "" when err is not one of the sentinels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrModerationRejected):
		return KindModerationRejected
	case errors.Is(err, ErrModerationUnavailable):
		return KindModerationUnavailable
	case errors.Is(err, ErrPublishFailed):
		return KindPublishFailed
	default:
		return ""
	}
}
