package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/txn2/wp-publish-gateway/pkg/session"
)

// SessionResolver resolves a session token. *session.Manager satisfies it.
type SessionResolver interface {
	Get(ctx context.Context, token string) (*session.Session, error)
}

// RequireSession rejects requests without a live session cookie with 401
// and places the session on the request context otherwise.
func RequireSession(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Get(r.Context(), session.TokenFromRequest(r))
			if err != nil {
				slog.Error("session lookup failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if sess == nil {
				writeError(w, http.StatusUnauthorized, ErrAuthentication.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireRole rejects requests whose session role differs from role with 403.
// It must run inside RequireSession.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFrom(r.Context())
			if sess == nil {
				writeError(w, http.StatusUnauthorized, ErrAuthentication.Error())
				return
			}
			if Role(sess.Role) != role {
				writeError(w, http.StatusForbidden, ErrAuthorization.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Status: "error", Message: message})
}
