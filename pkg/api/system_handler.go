package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/txn2/wp-publish-gateway/pkg/audit"
	"github.com/txn2/wp-publish-gateway/pkg/configstore"
)

const defaultAuditLimit = 50

// healthStatusResponse is returned by GET /health.
type healthStatusResponse struct {
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
	Service           string    `json:"service"`
	Version           string    `json:"version"`
	ActiveSessions    int       `json:"active_sessions"`
	ModerationEnabled bool      `json:"moderation_enabled"`
	TestMode          bool      `json:"test_mode"`
	ConfigMode        string    `json:"config_mode"`
}

// infoResponse is returned by GET /api/info.
type infoResponse struct {
	Service   string          `json:"service"`
	Version   string          `json:"version"`
	Endpoints []endpointInfo  `json:"endpoints"`
	Features  map[string]bool `json:"features"`
}

type endpointInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Access string `json:"access"`
}

// auditEventsResponse is returned by GET /api/audit.
type auditEventsResponse struct {
	Status string        `json:"status"`
	Events []audit.Event `json:"events"`
	Total  int           `json:"total"`
}

var endpointList = []endpointInfo{
	{Method: http.MethodPost, Path: "/login", Access: "public"},
	{Method: http.MethodPost, Path: "/logout", Access: "public"},
	{Method: http.MethodPost, Path: "/publish", Access: "session"},
	{Method: http.MethodGet, Path: "/api/stats/monthly", Access: "session"},
	{Method: http.MethodGet, Path: "/api/publish/history", Access: "session"},
	{Method: http.MethodGet, Path: "/api/user", Access: "session"},
	{Method: http.MethodGet, Path: "/api/audit", Access: "admin"},
	{Method: http.MethodGet, Path: "/config", Access: "admin"},
	{Method: http.MethodPost, Path: "/config", Access: "admin"},
	{Method: http.MethodGet, Path: "/config/history", Access: "admin"},
	{Method: http.MethodGet, Path: "/health", Access: "public"},
	{Method: http.MethodGet, Path: "/healthz", Access: "public"},
	{Method: http.MethodGet, Path: "/readyz", Access: "public"},
	{Method: http.MethodGet, Path: "/api/info", Access: "public"},
	{Method: http.MethodGet, Path: "/docs/", Access: "public"},
}

// healthStatus handles GET /health.
//
// @Summary      Service status
// @Description  Reports version, active session count, and feature flags.
// @Tags         System
// @Produce      json
// @Success      200  {object}  healthStatusResponse
// @Router       /health [get]
func (h *Handler) healthStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Snapshots.Current()

	active, err := h.deps.Sessions.Count(r.Context())
	if err != nil {
		slog.Warn("counting sessions", "error", err)
	}
	writeJSON(w, http.StatusOK, healthStatusResponse{
		Status:            "healthy",
		Timestamp:         time.Now().UTC(),
		Service:           snap.Config.Server.Name,
		Version:           h.deps.Version,
		ActiveSessions:    active,
		ModerationEnabled: snap.Publisher.ModerationEnabled(),
		TestMode:          snap.Config.CMS.Simulate || snap.Config.Moderation.Simulate,
		ConfigMode:        h.configMode(),
	})
}

// info handles GET /api/info.
//
// @Summary      Service info
// @Description  Lists the available endpoints and enabled features.
// @Tags         System
// @Produce      json
// @Success      200  {object}  infoResponse
// @Router       /api/info [get]
func (h *Handler) info(w http.ResponseWriter, _ *http.Request) {
	snap := h.deps.Snapshots.Current()
	writeJSON(w, http.StatusOK, infoResponse{
		Service:   snap.Config.Server.Name,
		Version:   h.deps.Version,
		Endpoints: endpointList,
		Features: map[string]bool{
			"moderation":          snap.Publisher.ModerationEnabled(),
			"moderation_simulate": snap.Config.Moderation.Simulate,
			"cms_simulate":        snap.Config.CMS.Simulate,
			"audit":               h.deps.Audit != nil,
			"config_history":      h.configMode() == configstore.ModeDatabase,
		},
	})
}

// listAuditEvents handles GET /api/audit.
//
// @Summary      List publish audit events
// @Description  Returns recent publish attempts, newest first.
// @Tags         Audit
// @Produce      json
// @Param        limit     query  integer  false  "Maximum events (default: 50)"
// @Param        username  query  string   false  "Filter by username"
// @Param        success   query  boolean  false  "Filter by outcome"
// @Success      200  {object}  auditEventsResponse
// @Failure      401  {object}  envelope
// @Failure      403  {object}  envelope
// @Failure      500  {object}  envelope
// @Router       /api/audit [get]
func (h *Handler) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	events := []audit.Event{}
	if h.deps.Audit != nil {
		q := r.URL.Query()
		filter := audit.QueryFilter{
			Username: q.Get("username"),
			Limit:    parseLimit(r, defaultAuditLimit),
		}
		if v := q.Get("success"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				filter.Success = &b
			}
		}

		found, err := h.deps.Audit.Query(r.Context(), filter)
		if err != nil {
			slog.Error("querying audit events", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to query audit events")
			return
		}
		if found != nil {
			events = found
		}
	}
	writeJSON(w, http.StatusOK, auditEventsResponse{
		Status: statusSuccess,
		Events: events,
		Total:  len(events),
	})
}
