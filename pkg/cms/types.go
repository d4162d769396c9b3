// Package cms is the WordPress REST client used to create posts, with an
// ordered endpoint fallback from the site's custom post resource to the
// standard posts resource.
package cms

import (
	"fmt"
	"strings"
)

// PublishType selects how a post is filed in the CMS.
type PublishType string

// Publish types.
const (
	PublishNormal   PublishType = "normal"
	PublishHeadline PublishType = "headline"
)

// Post statuses set or returned by WordPress.
const (
	StatusPending = "pending"
	StatusDraft   = "draft"
	StatusPublish = "publish"
)

// ParsePublishType parses s. An empty string selects PublishNormal.
func ParsePublishType(s string) (PublishType, error) {
	switch PublishType(strings.TrimSpace(s)) {
	case "", PublishNormal:
		return PublishNormal, nil
	case PublishHeadline:
		return PublishHeadline, nil
	default:
		return "", fmt.Errorf("unknown publish type %q", s)
	}
}

// Error describes a failed CMS call.
type Error struct {
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("cms returned %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// PublishResult is the outcome of CreatePost. Err is set on failure.
type PublishResult struct {
	ExternalID int64  `json:"id,omitempty"`
	Status     string `json:"status,omitempty"`
	Link       string `json:"link,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Err        *Error `json:"error,omitempty"`
}

// OK reports whether the post was created.
func (r *PublishResult) OK() bool {
	return r.Err == nil
}

// HistoryPost is one entry of the publish history.
type HistoryPost struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Date     string `json:"date"`
	Modified string `json:"modified"`
	Link     string `json:"link"`
}

// postPayload is the JSON body sent to WordPress.
type postPayload struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	Status          string `json:"status"`
	Categories      []int  `json:"categories,omitempty"`
	Author          int    `json:"author,omitempty"`
	HeadlineArticle bool   `json:"headline_article,omitempty"`
}

// wpPost is the subset of a WordPress post object the client reads.
type wpPost struct {
	ID    int64 `json:"id"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Status   string `json:"status"`
	Date     string `json:"date"`
	Modified string `json:"modified"`
	Link     string `json:"link"`
}

// wpError is the WordPress REST error body.
type wpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
