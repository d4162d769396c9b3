// Package configstore keeps the configuration written by POST /config.
//
// In file mode the YAML file the gateway started from is rewritten in place
// and revisions live only as long as the process. In database mode every save
// becomes a row in config_versions and exactly one row is active.
//
// Stores exchange raw YAML so this package does not depend on pkg/platform.
package configstore

import (
	"context"
	"errors"
	"time"
)

// ErrReadOnly is returned by Save on a store that cannot persist.
var ErrReadOnly = errors.New("config store is read-only")

// Store modes, matching config_store.mode.
const (
	ModeFile     = "file"
	ModeDatabase = "database"
)

// History page sizes.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// ClampLimit maps a requested history size into 1..MaxHistoryLimit.
// Non-positive values select DefaultHistoryLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

// Store persists gateway configuration snapshots.
type Store interface {
	// Load returns the active configuration, or nil, nil before the first save.
	Load(ctx context.Context) ([]byte, error)

	// Save makes data the active configuration.
	Save(ctx context.Context, data []byte, meta SaveMeta) error

	// History returns up to limit revisions, newest first.
	History(ctx context.Context, limit int) ([]Revision, error)

	// Mode returns ModeFile or ModeDatabase.
	Mode() string
}

// SaveMeta records who changed the configuration and what changed.
type SaveMeta struct {
	Author  string // admin username, or "bootstrap" for the initial seed
	Comment string
}

// Revision is one saved configuration.
type Revision struct {
	ID        int       `json:"id"`
	Version   int       `json:"version"`
	Author    string    `json:"author"`
	Comment   string    `json:"comment"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
