// Package publish runs an article through the publish pipeline: validate,
// moderate, create the post in the CMS, record the attempt, and shape the
// response.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/txn2/wp-publish-gateway/pkg/audit"
	"github.com/txn2/wp-publish-gateway/pkg/cms"
	"github.com/txn2/wp-publish-gateway/pkg/moderation"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// auditTimeout bounds the best-effort audit write.
const auditTimeout = 5 * time.Second

// Moderator screens text. *moderation.Client satisfies it.
type Moderator interface {
	Audit(ctx context.Context, text string) (*moderation.Result, error)
}

// Publisher creates posts. *cms.Client satisfies it.
type Publisher interface {
	CreatePost(ctx context.Context, title, content string, pt cms.PublishType) *cms.PublishResult
}

// Request is an article submission.
type Request struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	PublishType string `json:"publish_type"`
}

// Actor identifies who submitted the request.
type Actor struct {
	Username  string
	Role      string
	RequestID string
}

// Response is the publish envelope returned to clients.
type Response struct {
	Status             string                 `json:"status"`
	Message            string                 `json:"message"`
	PostID             *int64                 `json:"post_id,omitempty"`
	CMSStatus          string                 `json:"cms_status,omitempty"`
	Link               string                 `json:"link,omitempty"`
	AuditResult        *moderation.Result     `json:"audit_result,omitempty"`
	Violations         []moderation.Violation `json:"violations,omitempty"`
	ModerationBypassed bool                   `json:"moderation_bypassed,omitempty"`
	ErrorKind          string                 `json:"error_kind,omitempty"`
	Detail             string                 `json:"detail,omitempty"`
}

// Config configures an Orchestrator.
type Config struct {
	// ModerationEnabled is the kill-switch; when false the moderator is never called.
	ModerationEnabled bool
}

// Orchestrator runs the publish pipeline.
type Orchestrator struct {
	moderator         Moderator
	publisher         Publisher
	audit             audit.Logger
	moderationEnabled bool
	now               func() time.Time
}

// New creates an orchestrator. auditLog may be nil.
func New(cfg Config, moderator Moderator, publisher Publisher, auditLog audit.Logger) *Orchestrator {
	return &Orchestrator{
		moderator:         moderator,
		publisher:         publisher,
		audit:             auditLog,
		moderationEnabled: cfg.ModerationEnabled,
		now:               time.Now,
	}
}

// ModerationEnabled reports the kill-switch state.
func (o *Orchestrator) ModerationEnabled() bool {
	return o.moderationEnabled
}

// Publish runs req through the pipeline. Outbound calls are detached from
// ctx cancellation so a client disconnect does not abort a half-done publish.
func (o *Orchestrator) Publish(ctx context.Context, actor Actor, req Request) *Response {
	start := o.now()
	ctx = context.WithoutCancel(ctx)

	event := audit.NewEvent().
		WithActor(actor.Username, actor.Role).
		WithArticle(req.Title, req.PublishType).
		WithRequestID(actor.RequestID)

	resp := o.run(ctx, req, event)

	event.WithResult(resp.Status == StatusSuccess, resp.ErrorKind, failureMessage(resp), o.now().Sub(start).Milliseconds())
	o.record(ctx, event)
	return resp
}

func (o *Orchestrator) run(ctx context.Context, req Request, event *audit.Event) *Response {
	pt, err := validate(req)
	if err != nil {
		return failure(err, err.Error())
	}
	event.PublishType = string(pt)

	modResult, resp := o.moderate(ctx, req)
	if resp != nil {
		if modResult != nil {
			event.WithModeration(string(modResult.Conclusion), modResult.Bypassed)
		}
		return resp
	}
	event.WithModeration(string(modResult.Conclusion), modResult.Bypassed)

	result := o.publisher.CreatePost(ctx, req.Title, req.Content, pt)
	if !result.OK() {
		resp := failure(fmt.Errorf("%w: %w", ErrPublishFailed, result.Err), "cms publish failed: "+result.Err.Message)
		resp.Detail = result.Err.Detail
		resp.AuditResult = modResult
		return resp
	}
	event.WithPost(result.ExternalID, result.Status)

	postID := result.ExternalID
	return &Response{
		Status:             StatusSuccess,
		Message:            successMessage(pt, result.Status, modResult.Bypassed),
		PostID:             &postID,
		CMSStatus:          result.Status,
		Link:               result.Link,
		AuditResult:        modResult,
		ModerationBypassed: modResult.Bypassed,
	}
}

// moderate returns the verdict and, when the pipeline must stop, the response.
func (o *Orchestrator) moderate(ctx context.Context, req Request) (*moderation.Result, *Response) {
	if !o.moderationEnabled {
		return &moderation.Result{
			Conclusion: moderation.ConclusionDisabled,
			Bypassed:   true,
			Message:    "moderation disabled, content passed without review",
		}, nil
	}

	result, err := o.moderator.Audit(ctx, req.Title+"\n\n"+req.Content)
	if err != nil {
		slog.Error("moderation call failed", "error", err)
		resp := failure(fmt.Errorf("%w: %w", ErrModerationUnavailable, err), ErrModerationUnavailable.Error())
		return nil, resp
	}

	switch result.Conclusion {
	case moderation.ConclusionCompliant, moderation.ConclusionDisabled:
		return result, nil
	case moderation.ConclusionNonCompliant:
		words := result.Words()
		detail := "violating content detected"
		if len(words) > 0 {
			detail = strings.Join(words, ", ")
		}
		resp := failure(ErrModerationRejected, ErrModerationRejected.Error()+": "+detail)
		resp.AuditResult = result
		resp.Violations = result.Violations
		return result, resp
	default:
		resp := failure(ErrModerationRejected, "moderation returned an unexpected result, please retry")
		resp.ErrorKind = KindModerationUnknown
		resp.AuditResult = result
		return result, resp
	}
}

func (o *Orchestrator) record(ctx context.Context, event *audit.Event) {
	if o.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, auditTimeout)
	defer cancel()
	if err := o.audit.Log(ctx, *event); err != nil {
		slog.Warn("audit log write failed", "event_id", event.ID, "error", err)
	}
}

func validate(req Request) (cms.PublishType, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Content) == "" {
		return "", fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}
	pt, err := cms.ParsePublishType(req.PublishType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return pt, nil
}

func failure(err error, message string) *Response {
	return &Response{
		Status:    StatusError,
		Message:   message,
		ErrorKind: Kind(err),
	}
}

func failureMessage(resp *Response) string {
	if resp.Status == StatusSuccess {
		return ""
	}
	return resp.Message
}

func successMessage(pt cms.PublishType, status string, bypassed bool) string {
	msg := "article submitted"
	if pt == cms.PublishHeadline {
		msg = "headline saved"
	}
	switch status {
	case cms.StatusPending:
		msg += ", queued for review"
	case cms.StatusPublish:
		msg += ", published directly"
	case cms.StatusDraft:
		msg += ", saved as draft"
	}
	if bypassed {
		msg += " (moderation disabled)"
	}
	return msg
}
