package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/txn2/wp-publish-gateway/pkg/auth"
	"github.com/txn2/wp-publish-gateway/pkg/cms"
	"github.com/txn2/wp-publish-gateway/pkg/middleware"
	"github.com/txn2/wp-publish-gateway/pkg/publish"
)

// maxPublishBody caps the JSON body accepted by POST /publish.
const maxPublishBody = 4 << 20

// monthlyStatsResponse is returned by GET /api/stats/monthly.
type monthlyStatsResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	MonthlyCount int    `json:"monthly_count"`
	CurrentMonth string `json:"current_month"`
	Simulated    bool   `json:"simulated"`
}

// historyResponse is returned by GET /api/publish/history.
type historyResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Posts   []cms.HistoryPost `json:"posts"`
	Total   int               `json:"total"`
}

// publish handles POST /publish.
//
// @Summary      Publish an article
// @Description  Moderates the article (unless moderation is disabled) and submits it to WordPress.
// @Description  Business failures are reported with HTTP 200 and status "error".
// @Tags         Publish
// @Accept       json
// @Produce      json
// @Param        body  body  publish.Request  true  "Article"
// @Success      200  {object}  publish.Response
// @Failure      400  {object}  envelope
// @Failure      401  {object}  envelope
// @Router       /publish [post]
func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	var req publish.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublishBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := auth.SessionFrom(r.Context())
	actor := publish.Actor{
		Username:  sess.Username,
		Role:      sess.Role,
		RequestID: middleware.RequestID(r.Context()),
	}
	resp := h.deps.Snapshots.Current().Publisher.Publish(r.Context(), actor, req)
	writeJSON(w, http.StatusOK, resp)
}

// monthlyStats handles GET /api/stats/monthly.
//
// @Summary      Monthly publish count
// @Description  Counts posts created in WordPress since the first of the current month.
// @Tags         Reports
// @Produce      json
// @Success      200  {object}  monthlyStatsResponse
// @Failure      401  {object}  envelope
// @Router       /api/stats/monthly [get]
func (h *Handler) monthlyStats(w http.ResponseWriter, r *http.Request) {
	reports := h.deps.Snapshots.Current().Reports
	writeJSON(w, http.StatusOK, monthlyStatsResponse{
		Status:       statusSuccess,
		Message:      "monthly statistics loaded",
		MonthlyCount: reports.MonthlyCount(r.Context()),
		CurrentMonth: time.Now().Format("2006-01"),
		Simulated:    reports.Simulated(),
	})
}

// publishHistory handles GET /api/publish/history.
//
// @Summary      Recent posts
// @Description  Lists the most recently created WordPress posts, newest first.
// @Tags         Reports
// @Produce      json
// @Param        limit  query  integer  false  "Maximum posts to return (default: 20, max: 100)"
// @Success      200  {object}  historyResponse
// @Failure      401  {object}  envelope
// @Router       /api/publish/history [get]
func (h *Handler) publishHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, cms.DefaultHistoryLimit)
	posts := h.deps.Snapshots.Current().Reports.History(r.Context(), limit)
	if posts == nil {
		posts = []cms.HistoryPost{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Status:  statusSuccess,
		Message: "publish history loaded",
		Posts:   posts,
		Total:   len(posts),
	})
}

// parseLimit parses the limit query parameter, falling back to def when it
// is missing or not a positive integer.
func parseLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
