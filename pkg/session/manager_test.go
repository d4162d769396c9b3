package session

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (f *failingStore) Create(context.Context, *Session) error { return f.err }
func (f *failingStore) Get(context.Context, string) (*Session, error) { return nil, f.err }
func (f *failingStore) Delete(context.Context, string) error { return f.err }
func (f *failingStore) Cleanup(context.Context) error { return f.err }
func (f *failingStore) Count(context.Context) (int, error) { return 0, f.err }
func (*failingStore) Close() error { return nil }

func TestManager_CreateIssuesRandomToken(t *testing.T) {
	m := NewManager(NewMemoryStore(), time.Hour)
	ctx := context.Background()

	a, err := m.Create(ctx, "alice", "admin")
	require.NoError(t, err)
	b, err := m.Create(ctx, "alice", "admin")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	raw, err := base64.RawURLEncoding.DecodeString(a.ID)
	require.NoError(t, err)
	assert.Len(t, raw, tokenBytes)
	assert.Equal(t, time.Hour, a.ExpiresAt.Sub(a.CreatedAt))
}

func TestManager_DefaultTTL(t *testing.T) {
	m := NewManager(NewMemoryStore(), 0)
	assert.Equal(t, DefaultTTL, m.TTL())
}

func TestManager_GetLifecycle(t *testing.T) {
	store, clock := newClockedStore()
	m := NewManager(store, time.Hour)
	m.now = clock.Now
	ctx := context.Background()

	sess, err := m.Create(ctx, "vendor", "outsource")
	require.NoError(t, err)

	got, err := m.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "vendor", got.Username)
	assert.Equal(t, "outsource", got.Role)

	clock.Advance(time.Hour + time.Second)

	got, err = m.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "expired session must never be returned")

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestManager_GetEmptyToken(t *testing.T) {
	m := NewManager(&failingStore{err: errors.New("should not be called")}, time.Hour)

	got, err := m.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestManager_DeleteIdempotent(t *testing.T) {
	m := NewManager(NewMemoryStore(), time.Hour)
	ctx := context.Background()

	sess, err := m.Create(ctx, "alice", "admin")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, sess.ID))
	require.NoError(t, m.Delete(ctx, sess.ID))
	require.NoError(t, m.Delete(ctx, ""))

	got, err := m.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestManager_Sweep(t *testing.T) {
	store, clock := newClockedStore()
	m := NewManager(store, time.Minute)
	m.now = clock.Now
	ctx := context.Background()

	_, err := m.Create(ctx, "a", "admin")
	require.NoError(t, err)
	_, err = m.Create(ctx, "b", "outsource")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	require.NoError(t, m.Sweep(ctx))

	store.mu.Lock()
	assert.Empty(t, store.sessions)
	store.mu.Unlock()
}

func TestManager_StoreErrorsWrapped(t *testing.T) {
	storeErr := errors.New("backend down")
	m := NewManager(&failingStore{err: storeErr}, time.Hour)
	ctx := context.Background()

	_, err := m.Create(ctx, "a", "admin")
	require.ErrorIs(t, err, storeErr)
	assert.Contains(t, err.Error(), "creating session")

	_, err = m.Get(ctx, "tok")
	require.ErrorIs(t, err, storeErr)

	require.ErrorIs(t, m.Delete(ctx, "tok"), storeErr)
	require.ErrorIs(t, m.Sweep(ctx), storeErr)

	_, err = m.Count(ctx)
	require.ErrorIs(t, err, storeErr)
}
