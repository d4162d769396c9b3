package configstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// maxFileRevisions bounds the in-process revision list of a FileStore.
const maxFileRevisions = 50

// FileStore keeps the configuration in a YAML file. Saves replace the file
// atomically. Revisions are tracked for the life of the process only.
// A FileStore without a path is read-only.
type FileStore struct {
	path string

	mu        sync.Mutex
	data      []byte
	revisions []Revision
	version   int
}

// NewFileStore creates a FileStore holding data, written back to path on Save.
func NewFileStore(path string, data []byte) *FileStore {
	return &FileStore{path: path, data: slices.Clone(data)}
}

// Load returns the config as YAML bytes.
func (s *FileStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data), nil
}

// Save writes data to a temporary file next to the target and renames it
// into place.
func (s *FileStore) Save(_ context.Context, data []byte, meta SaveMeta) error {
	if s.path == "" {
		return ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp config file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting config file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing config file: %w", err)
	}

	s.data = slices.Clone(data)
	s.version++
	for i := range s.revisions {
		s.revisions[i].Active = false
	}
	s.revisions = append([]Revision{{
		ID:        s.version,
		Version:   s.version,
		Author:    meta.Author,
		Comment:   meta.Comment,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}}, s.revisions...)
	if len(s.revisions) > maxFileRevisions {
		s.revisions = s.revisions[:maxFileRevisions]
	}
	return nil
}

// History returns the revisions saved since the process started, newest first.
func (s *FileStore) History(_ context.Context, limit int) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.revisions)
	if limit = ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Mode returns "file".
func (*FileStore) Mode() string {
	return ModeFile
}

// Verify interface compliance.
var _ Store = (*FileStore)(nil)
