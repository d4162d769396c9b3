package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const (
	// tokenBytes is the number of random bytes behind a session token.
	tokenBytes = 32

	// DefaultTTL is the session lifetime used when none is configured.
	DefaultTTL = 24 * time.Hour
)

// Manager issues, resolves and revokes sessions against a Store.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a session manager. A non-positive ttl selects DefaultTTL.
func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime given to new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create issues a new session for username with role.
func (m *Manager) Create(ctx context.Context, username, role string) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	sess := &Session{
		ID:        token,
		Username:  username,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// Get resolves a token. Returns nil, nil for empty, unknown or expired tokens.
func (m *Manager) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil //nolint:nilnil // mirrors Store.Get
	}
	sess, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if sess == nil {
		return nil, nil //nolint:nilnil // mirrors Store.Get
	}
	if sess.Expired(m.now()) {
		_ = m.store.Delete(ctx, token)
		return nil, nil //nolint:nilnil // mirrors Store.Get
	}
	return sess, nil
}

// Delete revokes a token. Unknown or empty tokens are ignored.
func (m *Manager) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Sweep removes every expired session.
func (m *Manager) Sweep(ctx context.Context) error {
	if err := m.store.Cleanup(ctx); err != nil {
		return fmt.Errorf("sweeping sessions: %w", err)
	}
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count(ctx context.Context) (int, error) {
	n, err := m.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
