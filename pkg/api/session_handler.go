package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/txn2/wp-publish-gateway/pkg/auth"
	"github.com/txn2/wp-publish-gateway/pkg/session"
)

const (
	adminRedirect   = "/admin/dashboard"
	defaultRedirect = "/"
)

// loginResponse is returned by POST /login.
type loginResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Role     string `json:"role,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// userInfo describes the logged-in user.
type userInfo struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	LoginTime time.Time `json:"login_time"`
	ExpiresAt time.Time `json:"expires_at"`
}

// userResponse is returned by GET /api/user.
type userResponse struct {
	Status string   `json:"status"`
	User   userInfo `json:"user"`
}

// login handles POST /login.
//
// @Summary      Log in
// @Description  Verifies form credentials, starts a session, and sets the session cookie.
// @Tags         Session
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      200  {object}  loginResponse
// @Failure      400  {object}  envelope
// @Failure      500  {object}  envelope
// @Router       /login [post]
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := h.deps.Sessions.Sweep(r.Context()); err != nil {
		slog.Warn("session sweep failed", "error", err)
	}

	role, ok := h.deps.Snapshots.Current().Verifier.Verify(username, password)
	if !ok {
		slog.Info("login rejected", "username", username)
		writeJSON(w, http.StatusOK, loginResponse{
			Status:  statusError,
			Message: auth.ErrInvalidCredentials.Error(),
		})
		return
	}

	sess, err := h.deps.Sessions.Create(r.Context(), username, string(role))
	if err != nil {
		slog.Error("creating session", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.SetCookie(w, session.NewCookie(sess, h.deps.SecureCookies))
	slog.Info("login succeeded", "username", username, "role", role)

	redirect := defaultRedirect
	if role == auth.RoleAdmin {
		redirect = adminRedirect
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Status:   statusSuccess,
		Message:  "login successful",
		Role:     string(role),
		Redirect: redirect,
	})
}

// logout handles POST /logout.
//
// @Summary      Log out
// @Description  Ends the current session, if any, and clears the session cookie.
// @Tags         Session
// @Produce      json
// @Success      200  {object}  envelope
// @Router       /logout [post]
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if token := session.TokenFromRequest(r); token != "" {
		if err := h.deps.Sessions.Delete(r.Context(), token); err != nil {
			slog.Warn("deleting session on logout", "error", err)
		}
	}
	http.SetCookie(w, session.ClearCookie(h.deps.SecureCookies))
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Message: "logged out"})
}

// currentUser handles GET /api/user.
//
// @Summary      Current user
// @Tags         Session
// @Produce      json
// @Success      200  {object}  userResponse
// @Failure      401  {object}  envelope
// @Router       /api/user [get]
func (*Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFrom(r.Context())
	writeJSON(w, http.StatusOK, userResponse{
		Status: statusSuccess,
		User: userInfo{
			Username:  sess.Username,
			Role:      sess.Role,
			LoginTime: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
		},
	})
}
