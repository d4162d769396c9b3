package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/txn2/wp-publish-gateway/pkg/auth"
	"github.com/txn2/wp-publish-gateway/pkg/configstore"
	"github.com/txn2/wp-publish-gateway/pkg/platform"
)

const (
	// maxConfigBody caps the JSON body accepted by POST /config.
	maxConfigBody = 64 << 10

	redactedValue = "configured"
)

// sensitiveKeys are config keys whose values are never echoed back.
var sensitiveKeys = []string{
	"password",
	"app_password",
	"api_key",
	"secret_key",
	"dsn",
}

// configResponse is returned by GET /config.
type configResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Mode    string         `json:"mode"`
	Config  map[string]any `json:"config"`
}

// configUpdateResponse is returned by POST /config.
type configUpdateResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Updated []string `json:"updated,omitempty"`
}

// configHistoryResponse is returned by GET /config/history.
type configHistoryResponse struct {
	Status    string                 `json:"status"`
	Mode      string                 `json:"mode"`
	Revisions []configstore.Revision `json:"revisions"`
	Total     int                    `json:"total"`
}

// configToMap converts a config struct to map[string]any via YAML round-trip.
func configToMap(v any) (map[string]any, error) {
	yamlBytes, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(yamlBytes, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return m, nil
}

// getConfig handles GET /config.
//
// @Summary      Get config
// @Description  Returns the active configuration. Credentials are reported as "configured" rather than echoed.
// @Tags         Config
// @Produce      json
// @Success      200  {object}  configResponse
// @Failure      401  {object}  envelope
// @Failure      403  {object}  envelope
// @Failure      500  {object}  envelope
// @Router       /config [get]
func (h *Handler) getConfig(w http.ResponseWriter, _ *http.Request) {
	m, err := configToMap(h.deps.Snapshots.Current().Config)
	if err != nil {
		slog.Error("rendering config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render config")
		return
	}
	redactMap(m)
	writeJSON(w, http.StatusOK, configResponse{
		Status:  statusSuccess,
		Message: "config loaded",
		Mode:    h.configMode(),
		Config:  m,
	})
}

// updateConfig handles POST /config.
//
// @Summary      Update config
// @Description  Applies a partial update to the CMS and moderation settings, persists it, and reloads the clients.
// @Tags         Config
// @Accept       json
// @Produce      json
// @Param        body  body  platform.Update  true  "Fields to change"
// @Success      200  {object}  configUpdateResponse
// @Failure      400  {object}  envelope
// @Failure      401  {object}  envelope
// @Failure      403  {object}  envelope
// @Router       /config [post]
func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConfigBody))
	dec.DisallowUnknownFields()
	var u platform.Update
	if err := dec.Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if u.Empty() {
		writeJSON(w, http.StatusOK, configUpdateResponse{Status: statusError, Message: "no settings to update"})
		return
	}

	next, changed := h.deps.Snapshots.Current().Config.WithUpdate(u)

	author := ""
	if sess := auth.SessionFrom(r.Context()); sess != nil {
		author = sess.Username
	}
	meta := configstore.SaveMeta{
		Author:  author,
		Comment: "updated " + strings.Join(changed, ", "),
	}
	if err := h.deps.Reloader.Reload(r.Context(), next, meta); err != nil {
		slog.Warn("config update rejected", "author", author, "error", err)
		writeJSON(w, http.StatusOK, configUpdateResponse{
			Status:  statusError,
			Message: "config update failed: " + err.Error(),
		})
		return
	}

	slog.Info("config updated", "author", author, "keys", changed)
	writeJSON(w, http.StatusOK, configUpdateResponse{
		Status:  statusSuccess,
		Message: "config updated",
		Updated: changed,
	})
}

// configHistory handles GET /config/history.
//
// @Summary      Config history
// @Description  Returns recent configuration revisions, newest first.
// @Tags         Config
// @Produce      json
// @Param        limit  query  integer  false  "Maximum revisions (default: 20)"
// @Success      200  {object}  configHistoryResponse
// @Failure      401  {object}  envelope
// @Failure      403  {object}  envelope
// @Failure      500  {object}  envelope
// @Router       /config/history [get]
func (h *Handler) configHistory(w http.ResponseWriter, r *http.Request) {
	var revisions []configstore.Revision
	if h.deps.ConfigStore != nil {
		var err error
		revisions, err = h.deps.ConfigStore.History(r.Context(), parseLimit(r, configstore.DefaultHistoryLimit))
		if err != nil {
			slog.Error("loading config history", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load config history")
			return
		}
	}
	if revisions == nil {
		revisions = []configstore.Revision{}
	}
	writeJSON(w, http.StatusOK, configHistoryResponse{
		Status:    statusSuccess,
		Mode:      h.configMode(),
		Revisions: revisions,
		Total:     len(revisions),
	})
}

func (h *Handler) configMode() string {
	if h.deps.ConfigStore == nil {
		return configstore.ModeFile
	}
	return h.deps.ConfigStore.Mode()
}

// redactMap recursively walks the map and replaces non-empty sensitive values.
func redactMap(m map[string]any) {
	for k, v := range m {
		if isSensitiveKey(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = redactedValue
			}
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			redactMap(val)
		case []any:
			for _, item := range val {
				if nested, ok := item.(map[string]any); ok {
					redactMap(nested)
				}
			}
		}
	}
}

// isSensitiveKey checks if a key matches any sensitive pattern.
func isSensitiveKey(key string) bool {
	return slices.Contains(sensitiveKeys, strings.ToLower(key))
}
