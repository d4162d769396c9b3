// Package auth verifies the two static role credentials and guards HTTP
// handlers behind a valid login session.
package auth

import (
	"context"

	"github.com/txn2/wp-publish-gateway/pkg/session"
)

// contextKey is a private type for context keys.
type contextKey int

const (
	sessionContextKey contextKey = iota
)

// WithSession adds the authenticated session to the context.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFrom retrieves the authenticated session from the context.
func SessionFrom(ctx context.Context) *session.Session {
	if sess, ok := ctx.Value(sessionContextKey).(*session.Session); ok {
		return sess
	}
	return nil
}
