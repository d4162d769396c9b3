// Package postgres provides a PostgreSQL-backed config store with versioning.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/txn2/wp-publish-gateway/pkg/configstore"
)

const configTable = "config_versions"

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store persists configuration versions in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL config store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns the active configuration as YAML bytes, or nil if no config exists yet (first boot).
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	query, args, err := psq.Select("config_yaml").From(configTable).Where(sq.Eq{"is_active": true}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building load query: %w", err)
	}

	var yamlText string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&yamlText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil data means first boot
	}
	if err != nil {
		return nil, fmt.Errorf("loading active config: %w", err)
	}
	return []byte(yamlText), nil
}

// Save persists a new configuration version, deactivating the previous one.
func (s *Store) Save(ctx context.Context, data []byte, meta configstore.SaveMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var nextVersion int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM config_versions`).Scan(&nextVersion)
	if err != nil {
		return fmt.Errorf("getting next version: %w", err)
	}

	deactivate, args, err := psq.Update(configTable).Set("is_active", false).Where(sq.Eq{"is_active": true}).ToSql()
	if err != nil {
		return fmt.Errorf("building deactivate query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deactivate, args...); err != nil {
		return fmt.Errorf("deactivating current config: %w", err)
	}

	insert, args, err := psq.Insert(configTable).
		Columns("version", "config_yaml", "author", "comment", "is_active").
		Values(nextVersion, string(data), meta.Author, meta.Comment, true).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return fmt.Errorf("inserting config version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing config version: %w", err)
	}
	return nil
}

// History returns recent configuration revisions, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]configstore.Revision, error) {
	query, args, err := psq.Select("id", "version", "author", "comment", "is_active", "created_at").
		From(configTable).
		OrderBy("version DESC").
		Limit(uint64(configstore.ClampLimit(limit))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building history query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying config history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	revisions := []configstore.Revision{}
	for rows.Next() {
		var r configstore.Revision
		if err := rows.Scan(&r.ID, &r.Version, &r.Author, &r.Comment, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning revision: %w", err)
		}
		revisions = append(revisions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating revisions: %w", err)
	}
	return revisions, nil
}

// Mode returns "database".
func (*Store) Mode() string {
	return configstore.ModeDatabase
}

// Verify interface compliance.
var _ configstore.Store = (*Store)(nil)
