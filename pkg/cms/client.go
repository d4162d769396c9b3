package cms

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const (
	restRoot         = "/wp-json/wp/v2"
	standardResource = "posts"
	maxBodyBytes     = 1 << 20
	maxDetailBytes   = 500
	simulatedDomain  = "https://test-domain.com"
)

// Config configures a Client.
type Config struct {
	Domain             string
	Username           string
	AppPassword        string
	Simulate           bool
	CustomResource     string
	HeadlineCategoryID int
	AuthorID           int
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
}

// Client talks to the WordPress REST API. It is safe for concurrent use.
type Client struct {
	cfg        Config
	apiBase    string
	endpoints  []string
	httpClient *http.Client
	now        func() time.Time
	seq        atomic.Int64
}

// New creates a CMS client. A nil httpClient selects a client built from cfg.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in for self-signed staging sites
		}
		httpClient = &http.Client{Transport: transport, Timeout: cfg.Timeout}
	}
	if cfg.CustomResource == "" {
		cfg.CustomResource = "adv_posts"
	}

	c := &Client{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
	c.seq.Store(time.Now().Unix())
	if !cfg.Simulate {
		c.apiBase = APIBase(cfg.Domain)
		c.endpoints = []string{
			c.apiBase + "/" + cfg.CustomResource,
			c.apiBase + "/" + standardResource,
		}
	}
	return c
}

// Simulated reports whether the client fabricates results instead of calling WordPress.
func (c *Client) Simulated() bool {
	return c.cfg.Simulate
}

// APIBase builds the REST root for domain. Private and local hosts use
// plain http, everything else https.
func APIBase(domain string) string {
	host := strings.TrimSpace(domain)
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimRight(host, "/")

	scheme := "https"
	if isPrivateHost(host) {
		scheme = "http"
	}
	return scheme + "://" + host + restRoot
}

func isPrivateHost(host string) bool {
	return strings.HasPrefix(host, "localhost") ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "10.")
}

// payloadFor maps a publish type to the post status and category.
func (c *Client) payloadFor(title, content string, pt PublishType) postPayload {
	p := postPayload{
		Title:   title,
		Content: content,
		Status:  StatusPending,
		Author:  c.cfg.AuthorID,
	}
	if pt == PublishHeadline {
		p.Status = StatusDraft
		p.Categories = []int{c.cfg.HeadlineCategoryID}
		p.HeadlineArticle = true
	}
	return p
}

// CreatePost creates a post. Failures are reported in PublishResult.Err,
// never as a Go error.
func (c *Client) CreatePost(ctx context.Context, title, content string, pt PublishType) *PublishResult {
	payload := c.payloadFor(title, content, pt)

	if c.cfg.Simulate {
		id := c.seq.Add(1)
		slog.Info("simulated cms publish", "post_id", id, "publish_type", string(pt))
		return &PublishResult{
			ExternalID: id,
			Status:     payload.Status,
			Link:       fmt.Sprintf("%s/posts/%d", simulatedDomain, id),
			Endpoint:   "simulate",
			StatusCode: http.StatusCreated,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &PublishResult{Err: &Error{Message: fmt.Sprintf("encoding post: %v", err)}}
	}

	var last *PublishResult
	for i, endpoint := range c.endpoints {
		res, outcome := c.attempt(ctx, endpoint, body)
		switch outcome {
		case outcomeSuccess:
			slog.Info("cms post created", "endpoint", endpoint, "post_id", res.ExternalID, "status", res.Status)
			return res
		case outcomeTerminal:
			slog.Warn("cms publish failed", "endpoint", endpoint, "status_code", res.StatusCode, "error", res.Err.Message)
			return res
		case outcomeFallthrough:
			if i < len(c.endpoints)-1 {
				slog.Info("cms endpoint unavailable, trying next", "endpoint", endpoint, "status_code", res.StatusCode)
			}
			last = res
		}
	}

	slog.Warn("cms publish failed on every endpoint", "status_code", last.StatusCode, "error", last.Err.Message)
	return last
}

// attemptOutcome classifies one endpoint attempt.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeFallthrough
	outcomeTerminal
)

func classify(status int) attemptOutcome {
	switch {
	case status >= 200 && status < 300:
		return outcomeSuccess
	case status == http.StatusNotFound, status >= 500:
		return outcomeFallthrough
	default:
		return outcomeTerminal
	}
}

func (c *Client) attempt(ctx context.Context, endpoint string, body []byte) (*PublishResult, attemptOutcome) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &PublishResult{Endpoint: endpoint, Err: &Error{Message: fmt.Sprintf("creating request: %v", err)}}, outcomeTerminal
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &PublishResult{
			Endpoint: endpoint,
			Err:      &Error{Message: "cms connection failed", Detail: err.Error()},
		}, outcomeFallthrough
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &PublishResult{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        &Error{StatusCode: resp.StatusCode, Message: "reading cms response failed", Detail: err.Error()},
		}, outcomeFallthrough
	}

	outcome := classify(resp.StatusCode)
	if outcome != outcomeSuccess {
		return &PublishResult{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        errorFromBody(resp.StatusCode, raw),
		}, outcome
	}

	var post wpPost
	if err := json.Unmarshal(raw, &post); err != nil {
		return &PublishResult{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        &Error{StatusCode: resp.StatusCode, Message: "decoding cms response failed", Detail: err.Error()},
		}, outcomeTerminal
	}
	return &PublishResult{
		ExternalID: post.ID,
		Status:     post.Status,
		Link:       post.Link,
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
	}, outcomeSuccess
}

// errorFromBody extracts the WordPress error message, or falls back to the body text.
func errorFromBody(status int, raw []byte) *Error {
	var wpErr wpError
	if err := json.Unmarshal(raw, &wpErr); err == nil && wpErr.Message != "" {
		return &Error{StatusCode: status, Message: wpErr.Message, Detail: wpErr.Code}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > maxDetailBytes {
		text = text[:maxDetailBytes]
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return &Error{StatusCode: status, Message: text}
}

func (c *Client) decorate(req *http.Request) {
	req.SetBasicAuth(strings.TrimSpace(c.cfg.Username), strings.TrimSpace(c.cfg.AppPassword))
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
