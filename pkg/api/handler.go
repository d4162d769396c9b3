// Package api provides the gateway's HTTP endpoints: login, publishing,
// reporting, runtime configuration, and health.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/txn2/wp-publish-gateway/pkg/audit"
	"github.com/txn2/wp-publish-gateway/pkg/auth"
	"github.com/txn2/wp-publish-gateway/pkg/cms"
	"github.com/txn2/wp-publish-gateway/pkg/configstore"
	"github.com/txn2/wp-publish-gateway/pkg/health"
	"github.com/txn2/wp-publish-gateway/pkg/platform"
	"github.com/txn2/wp-publish-gateway/pkg/publish"
	"github.com/txn2/wp-publish-gateway/pkg/session"
)

// Envelope status values.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// Publisher runs the publish pipeline. *publish.Orchestrator satisfies it.
type Publisher interface {
	Publish(ctx context.Context, actor publish.Actor, req publish.Request) *publish.Response
	ModerationEnabled() bool
}

// Reports serves CMS-backed statistics. *cms.Client satisfies it.
type Reports interface {
	MonthlyCount(ctx context.Context) int
	History(ctx context.Context, limit int) []cms.HistoryPost
	Simulated() bool
}

// Snapshot is the set of config-derived components a request runs against.
// A snapshot is never modified after it is published.
type Snapshot struct {
	Config    *platform.Config
	Verifier  *auth.Verifier
	Publisher Publisher
	Reports   Reports
}

// SnapshotSource returns the live snapshot.
type SnapshotSource interface {
	Current() *Snapshot
}

// Reloader validates, persists and activates a new configuration.
type Reloader interface {
	Reload(ctx context.Context, cfg *platform.Config, meta configstore.SaveMeta) error
}

// Deps holds the dependencies for the API handler.
type Deps struct {
	Sessions      *session.Manager
	Snapshots     SnapshotSource
	Reloader      Reloader
	ConfigStore   configstore.Store
	Audit         audit.Logger
	Health        *health.Checker
	SecureCookies bool
	Version       string
}

// Handler serves the gateway HTTP API.
type Handler struct {
	mux  *http.ServeMux
	deps Deps
}

// NewHandler creates the API handler and registers all routes.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		mux:  http.NewServeMux(),
		deps: deps,
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all API routes.
func (h *Handler) registerRoutes() {
	loggedIn := auth.RequireSession(h.deps.Sessions)
	admin := func(hf http.HandlerFunc) http.Handler {
		return loggedIn(auth.RequireRole(auth.RoleAdmin)(hf))
	}
	user := func(hf http.HandlerFunc) http.Handler {
		return loggedIn(hf)
	}

	h.mux.HandleFunc("POST /login", h.login)
	h.mux.HandleFunc("POST /logout", h.logout)

	h.mux.Handle("POST /publish", user(h.publish))
	h.mux.Handle("GET /api/stats/monthly", user(h.monthlyStats))
	h.mux.Handle("GET /api/publish/history", user(h.publishHistory))
	h.mux.Handle("GET /api/user", user(h.currentUser))

	h.mux.Handle("GET /api/audit", admin(h.listAuditEvents))
	h.mux.Handle("GET /config", admin(h.getConfig))
	h.mux.Handle("POST /config", admin(h.updateConfig))
	h.mux.Handle("GET /config/history", admin(h.configHistory))

	h.mux.HandleFunc("GET /health", h.healthStatus)
	h.mux.HandleFunc("GET /api/info", h.info)
	if h.deps.Health != nil {
		h.mux.Handle("GET /healthz", h.deps.Health.LivenessHandler())
		h.mux.Handle("GET /readyz", h.deps.Health.ReadinessHandler())
	}
	h.mux.Handle("GET /docs/", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
}

// envelope is the common response shape.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Status: statusError, Message: msg})
}
