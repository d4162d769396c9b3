// Package session provides login session management for the gateway.
// It defines the Store interface for session persistence, the Session type
// held by every authenticated request, and the Manager that issues tokens.
package session

import (
	"context"
	"time"
)

// Session represents an authenticated login.
type Session struct {
	// ID is the opaque session token handed to the client in a cookie.
	ID string

	// Username is the login name the session was issued for.
	Username string

	// Role is the role granted at login (admin or outsource).
	Role string

	// CreatedAt is when the login happened.
	CreatedAt time.Time

	// ExpiresAt is when the session stops being valid. Never before CreatedAt.
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store defines the interface for session persistence.
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by ID. Returns nil, nil if not found or expired.
	// An expired entry is removed as a side effect.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error

	// Count returns the number of non-expired sessions.
	Count(ctx context.Context) (int, error)

	// Close stops background routines and releases resources.
	Close() error
}
