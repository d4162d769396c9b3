package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// History limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	simulatedMonthlyCount = 42
)

// ClampHistoryLimit clamps limit to 1..MaxHistoryLimit; zero or less selects the default.
func ClampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

// MonthlyCount returns how many posts were created since the first of the
// current month. Failures are logged and reported as 0.
func (c *Client) MonthlyCount(ctx context.Context) int {
	if c.cfg.Simulate {
		return simulatedMonthlyCount
	}

	now := c.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	q := url.Values{}
	q.Set("after", monthStart.Format("2006-01-02T15:04:05"))
	q.Set("per_page", "1")

	resp, err := c.query(ctx, q)
	if err != nil {
		slog.Warn("monthly count request failed", "error", err)
		return 0
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	total, err := strconv.Atoi(resp.Header.Get("X-WP-Total"))
	if err != nil {
		slog.Warn("monthly count header missing", "error", err)
		return 0
	}
	return total
}

// History returns the most recent posts, newest first. Failures are logged
// and reported as an empty list.
func (c *Client) History(ctx context.Context, limit int) []HistoryPost {
	limit = ClampHistoryLimit(limit)
	if c.cfg.Simulate {
		posts := simulatedHistory()
		if limit < len(posts) {
			posts = posts[:limit]
		}
		return posts
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("orderby", "date")
	q.Set("order", "desc")
	q.Set("context", "edit")
	q.Set("status", "publish,pending,draft")

	resp, err := c.query(ctx, q)
	if err != nil {
		slog.Warn("history request failed", "error", err)
		return []HistoryPost{}
	}
	defer func() { _ = resp.Body.Close() }()

	var raw []wpPost
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&raw); err != nil {
		slog.Warn("decoding history failed", "error", err)
		return []HistoryPost{}
	}

	posts := make([]HistoryPost, 0, len(raw))
	for _, p := range raw {
		posts = append(posts, HistoryPost{
			ID:       p.ID,
			Title:    p.Title.Rendered,
			Status:   p.Status,
			Date:     p.Date,
			Modified: p.Modified,
			Link:     p.Link,
		})
	}
	return posts
}

// query GETs the endpoints in publish order and returns the first 2xx
// response. 404, 5xx, and transport errors move on to the next endpoint;
// any other status stops. The caller closes the returned body.
func (c *Client) query(ctx context.Context, q url.Values) (*http.Response, error) {
	var lastErr error
	for _, endpoint := range c.endpoints {
		resp, err := c.get(ctx, endpoint, q)
		if err != nil {
			lastErr = err
			continue
		}

		outcome := classify(resp.StatusCode)
		if outcome == outcomeSuccess {
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		lastErr = fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
		if outcome == outcomeTerminal {
			return nil, lastErr
		}
		slog.Debug("cms endpoint unavailable, trying next", "endpoint", endpoint, "status_code", resp.StatusCode)
	}
	if lastErr == nil {
		lastErr = errors.New("no cms endpoints configured")
	}
	return nil, lastErr
}

// Ping verifies the credentials against /users/me.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.Simulate {
		return nil
	}
	resp, err := c.get(ctx, c.apiBase+"/users/me", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode != http.StatusOK {
		return errorFromBody(resp.StatusCode, raw)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values) (*http.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	target := endpoint
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the request timeout once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func simulatedHistory() []HistoryPost {
	return []HistoryPost{
		{ID: 123, Title: "Sample article one", Status: StatusPublish, Date: "2024-01-20T10:30:00", Modified: "2024-01-20T10:30:00", Link: "http://test.com/123"},
		{ID: 122, Title: "Sample article two", Status: StatusPending, Date: "2024-01-19T15:20:00", Modified: "2024-01-19T15:20:00", Link: "http://test.com/122"},
		{ID: 121, Title: "HTML mode sample", Status: StatusDraft, Date: "2024-01-18T09:15:00", Modified: "2024-01-18T09:15:00", Link: "http://test.com/121"},
	}
}
