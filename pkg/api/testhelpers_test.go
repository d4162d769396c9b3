package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/txn2/wp-publish-gateway/pkg/audit"
	"github.com/txn2/wp-publish-gateway/pkg/auth"
	"github.com/txn2/wp-publish-gateway/pkg/cms"
	"github.com/txn2/wp-publish-gateway/pkg/configstore"
	"github.com/txn2/wp-publish-gateway/pkg/health"
	"github.com/txn2/wp-publish-gateway/pkg/moderation"
	"github.com/txn2/wp-publish-gateway/pkg/platform"
	"github.com/txn2/wp-publish-gateway/pkg/publish"
	"github.com/txn2/wp-publish-gateway/pkg/session"
)

const (
	testAdminUser     = "admin"
	testAdminPass     = "Admin@2024"
	testOutsourceUser = "outsource"
	testOutsourcePass = "Outsource@2024"
	testForbiddenTerm = "违规内容"
	testPostID        = int64(4711)
)

// --- Mock SnapshotSource ---

type staticSnapshots struct {
	mu   sync.Mutex
	snap *Snapshot
}

func (s *staticSnapshots) Current() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *staticSnapshots) set(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// --- Mock Reloader ---

type recordingReloader struct {
	snapshots *staticSnapshots
	err       error
	got       *platform.Config
	meta      configstore.SaveMeta
}

func (r *recordingReloader) Reload(_ context.Context, cfg *platform.Config, meta configstore.SaveMeta) error {
	r.got = cfg
	r.meta = meta
	if r.err != nil {
		return r.err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	next := *r.snapshots.Current()
	next.Config = cfg
	r.snapshots.set(&next)
	return nil
}

// --- Counting CMS publisher ---

type countingCMS struct {
	calls atomic.Int32
}

func (c *countingCMS) CreatePost(_ context.Context, _, _ string, pt cms.PublishType) *cms.PublishResult {
	c.calls.Add(1)
	status := cms.StatusPending
	if pt == cms.PublishHeadline {
		status = cms.StatusDraft
	}
	return &cms.PublishResult{ExternalID: testPostID, Status: status, StatusCode: http.StatusCreated}
}

// --- Mock config store ---

type stubConfigStore struct {
	revisions []configstore.Revision
	err       error
}

func (*stubConfigStore) Load(context.Context) ([]byte, error)                     { return nil, nil }
func (*stubConfigStore) Save(context.Context, []byte, configstore.SaveMeta) error { return nil }
func (s *stubConfigStore) History(context.Context, int) ([]configstore.Revision, error) {
	return s.revisions, s.err
}
func (*stubConfigStore) Mode() string { return configstore.ModeDatabase }

var _ configstore.Store = (*stubConfigStore)(nil)

// testEnv wires a handler against simulated moderation and a counting CMS.
type testEnv struct {
	handler   *Handler
	sessions  *session.Manager
	snapshots *staticSnapshots
	reloader  *recordingReloader
	cms       *countingCMS
	audit     *audit.MemoryLogger
	store     *stubConfigStore
}

type envOption func(*platform.Config)

func withModerationDisabled() envOption {
	return func(c *platform.Config) {
		disabled := false
		c.Moderation.Enabled = &disabled
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := platform.Default()
	cfg.Auth.Admin = platform.CredentialConfig{Username: testAdminUser, Password: testAdminPass}
	cfg.Auth.Outsource = platform.CredentialConfig{Username: testOutsourceUser, Password: testOutsourcePass}
	cfg.Moderation.ForbiddenTerms = []string{testForbiddenTerm}
	cfg.CMS.AppPassword = "wp-app-password"
	cfg.Moderation.APIKey = "moderation-key"
	for _, opt := range opts {
		opt(cfg)
	}
	require.NoError(t, cfg.Validate())

	env := &testEnv{
		sessions: session.NewManager(session.NewMemoryStore(), time.Hour),
		cms:      &countingCMS{},
		audit:    audit.NewMemoryLogger(16),
		store:    &stubConfigStore{},
	}

	moderator := moderation.New(moderation.Config{
		Enabled:        cfg.Moderation.IsEnabled(),
		Simulate:       true,
		ForbiddenTerms: cfg.Moderation.ForbiddenTerms,
	}, nil)
	orchestrator := publish.New(publish.Config{ModerationEnabled: cfg.Moderation.IsEnabled()}, moderator, env.cms, env.audit)

	env.snapshots = &staticSnapshots{snap: &Snapshot{
		Config: cfg,
		Verifier: auth.NewVerifier(
			auth.Credential{Username: cfg.Auth.Admin.Username, Password: cfg.Auth.Admin.Password},
			auth.Credential{Username: cfg.Auth.Outsource.Username, Password: cfg.Auth.Outsource.Password},
		),
		Publisher: orchestrator,
		Reports:   cms.New(cms.Config{Simulate: true}, nil),
	}}
	env.reloader = &recordingReloader{snapshots: env.snapshots}

	checker := health.NewChecker()
	checker.SetReady()

	env.handler = NewHandler(Deps{
		Sessions:    env.sessions,
		Snapshots:   env.snapshots,
		Reloader:    env.reloader,
		ConfigStore: env.store,
		Audit:       env.audit,
		Health:      checker,
		Version:     "1.2.3",
	})
	return env
}

// do sends a request through the handler, attaching cookie when non-nil.
func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// login logs in and returns the session cookie.
func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := e.do(loginRequest(username, password), nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login as %s did not set a session cookie: %s", username, w.Body.String())
	return nil
}

func loginRequest(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
