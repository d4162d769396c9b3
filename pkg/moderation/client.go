package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Provider error codes meaning the access token was rejected.
const (
	errCodeTokenInvalid = 110
	errCodeTokenExpired = 111
)

const maxResponseBytes = 1 << 20

// errTokenRejected marks a censor call refused because of the access token.
var errTokenRejected = errors.New("access token rejected")

// Config configures a Client.
type Config struct {
	Enabled        bool
	Simulate       bool
	APIKey         string
	SecretKey      string
	TokenURL       string
	CensorURL      string
	ForbiddenTerms []string
	TokenTimeout   time.Duration
	RequestTimeout time.Duration
	RefreshBefore  time.Duration
}

// Client is the moderation client. It is safe for concurrent use.
type Client struct {
	enabled        bool
	simulate       bool
	terms          []string
	censorURL      string
	requestTimeout time.Duration
	refreshBefore  time.Duration
	httpClient     *http.Client

	credentials *clientcredentials.Config
	tokenCtx    context.Context //nolint:containedctx // carries the token HTTP client for oauth2

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

// New creates a moderation client. A nil httpClient selects http.DefaultClient.
// When moderation is enabled outside simulate mode but either credential is
// missing, the client falls back to simulate mode.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		enabled:        cfg.Enabled,
		simulate:       cfg.Simulate,
		terms:          slices.Clone(cfg.ForbiddenTerms),
		censorURL:      cfg.CensorURL,
		requestTimeout: cfg.RequestTimeout,
		refreshBefore:  cfg.RefreshBefore,
		httpClient:     httpClient,
	}

	if c.enabled && !c.simulate && (cfg.APIKey == "" || cfg.SecretKey == "") {
		slog.Warn("moderation credentials not configured, using simulate mode")
		c.simulate = true
	}
	if !c.enabled || c.simulate {
		return c
	}

	c.credentials = &clientcredentials.Config{
		ClientID:     cfg.APIKey,
		ClientSecret: cfg.SecretKey,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tokenClient := &http.Client{
		Transport: httpClient.Transport,
		Timeout:   cfg.TokenTimeout,
	}
	c.tokenCtx = context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)
	c.tokens = c.newTokenSource()
	return c
}

// Enabled reports whether the kill-switch is on.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Simulated reports whether verdicts come from the local term list.
func (c *Client) Simulated() bool {
	return c.simulate
}

// Audit screens text. Provider failures are returned wrapped in ErrUnavailable.
func (c *Client) Audit(ctx context.Context, text string) (*Result, error) {
	if !c.enabled {
		return &Result{
			Conclusion: ConclusionDisabled,
			Bypassed:   true,
			Message:    "moderation disabled, content passed without review",
		}, nil
	}
	if c.simulate {
		return simulate(text, c.terms), nil
	}

	res, err := c.censorWithToken(ctx, text)
	if err == nil {
		return res, nil
	}
	if !retryable(err) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	slog.Info("moderation call failed, refreshing token and retrying", "error", err)
	c.resetToken()

	res, err = c.censorWithToken(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return res, nil
}

type tokenError struct {
	err error
}

func (e *tokenError) Error() string { return "fetching access token: " + e.err.Error() }
func (e *tokenError) Unwrap() error { return e.err }

// transportError marks a censor call that never got an HTTP response.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "calling censor endpoint: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *tokenError
	var tre *transportError
	return errors.As(err, &te) || errors.As(err, &tre) || errors.Is(err, errTokenRejected)
}

func (c *Client) censorWithToken(ctx context.Context, text string) (*Result, error) {
	tok, err := c.token()
	if err != nil {
		return nil, &tokenError{err: err}
	}
	return c.censor(ctx, tok.AccessToken, text)
}

// fetchSource fetches a fresh token on every call; caching is left to the
// ReuseTokenSource wrapped around it so refreshBefore applies.
type fetchSource struct {
	ctx context.Context //nolint:containedctx // oauth2 reads its HTTP client from here
	cfg *clientcredentials.Config
}

func (s fetchSource) Token() (*oauth2.Token, error) {
	return s.cfg.Token(s.ctx)
}

func (c *Client) newTokenSource() oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(nil, fetchSource{ctx: c.tokenCtx, cfg: c.credentials}, c.refreshBefore)
}

func (c *Client) token() (*oauth2.Token, error) {
	c.mu.Lock()
	src := c.tokens
	c.mu.Unlock()
	return src.Token()
}

func (c *Client) resetToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = c.newTokenSource()
}

// censorResponse is the provider's text censor reply.
type censorResponse struct {
	ErrorCode      int          `json:"error_code"`
	ErrorMsg       string       `json:"error_msg"`
	Conclusion     string       `json:"conclusion"`
	ConclusionType int          `json:"conclusionType"`
	Data           []censorItem `json:"data"`
}

type censorItem struct {
	SubType any         `json:"subType"`
	Msg     string      `json:"msg"`
	Hits    []censorHit `json:"hits"`
}

type censorHit struct {
	Words []string `json:"words"`
}

func (c *Client) censor(ctx context.Context, accessToken, text string) (*Result, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.censorURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating censor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading censor response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errTokenRejected
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("censor endpoint returned status %d", resp.StatusCode)
	}

	var parsed censorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding censor response: %w", err)
	}
	switch parsed.ErrorCode {
	case 0:
	case errCodeTokenInvalid, errCodeTokenExpired:
		return nil, errTokenRejected
	default:
		return nil, fmt.Errorf("censor error %d: %s", parsed.ErrorCode, parsed.ErrorMsg)
	}

	return toResult(&parsed), nil
}

func toResult(r *censorResponse) *Result {
	res := &Result{
		Conclusion:   conclusionFromCode(r.ConclusionType),
		Message:      r.Conclusion,
		ProviderCode: r.ConclusionType,
	}
	for _, item := range r.Data {
		var words []string
		for _, hit := range item.Hits {
			words = append(words, hit.Words...)
		}
		if len(words) == 0 {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Words:       words,
			Category:    subTypeString(item.SubType),
			Description: item.Msg,
		})
	}
	return res
}

// subTypeString renders the provider subType, which is numeric in the
// live API and textual in some fixtures.
func subTypeString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%d", int64(t))
	default:
		return fmt.Sprint(t)
	}
}

// Verify interface compliance.
var _ Auditor = (*Client)(nil)
