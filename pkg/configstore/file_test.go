package configstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_LoadReturnsInitialData(t *testing.T) {
	s := NewFileStore("", []byte("server:\n  name: gw\n"))

	data, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: gw")
	assert.Equal(t, ModeFile, s.Mode())
}

func TestFileStore_ReadOnlyWithoutPath(t *testing.T) {
	s := NewFileStore("", []byte("a: 1\n"))

	err := s.Save(context.Background(), []byte("a: 2\n"), SaveMeta{Author: "admin"})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestFileStore_SaveReplacesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	s := NewFileStore(path, []byte("a: 1\n"))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []byte("a: 2\n"), SaveMeta{Author: "admin", Comment: "first"}))
	require.NoError(t, s.Save(ctx, []byte("a: 3\n"), SaveMeta{Author: "admin", Comment: "second"}))

	onDisk, err := os.ReadFile(path) //nolint:gosec // test temp path
	require.NoError(t, err)
	assert.Equal(t, "a: 3\n", string(onDisk))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a: 3\n", string(loaded))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file cleaned up")

	history, err := s.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Comment)
	assert.Equal(t, 2, history[0].Version)
	assert.True(t, history[0].Active)
	assert.False(t, history[1].Active)

	history, err = s.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestFileStore_SaveMissingDirectory(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing", "config.yaml"), nil)

	err := s.Save(context.Background(), []byte("a: 1\n"), SaveMeta{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating temp config file")
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, DefaultHistoryLimit},
		{0, DefaultHistoryLimit},
		{1, 1},
		{MaxHistoryLimit, MaxHistoryLimit},
		{MaxHistoryLimit + 1, MaxHistoryLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "ClampLimit(%d)", tt.in)
	}
}
