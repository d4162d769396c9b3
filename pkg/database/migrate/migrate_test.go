//go:build integration

package migrate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/txn2/wp-publish-gateway/pkg/audit"
	auditpg "github.com/txn2/wp-publish-gateway/pkg/audit/postgres"
	"github.com/txn2/wp-publish-gateway/pkg/configstore"
	configpg "github.com/txn2/wp-publish-gateway/pkg/configstore/postgres"
	"github.com/txn2/wp-publish-gateway/pkg/session"
	sessionpg "github.com/txn2/wp-publish-gateway/pkg/session/postgres"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`, name).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = pgContainer.Terminate(ctx) }()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("Run applies migrations", func(t *testing.T) {
		require.NoError(t, Run(db))
		for _, table := range []string{"sessions", "publish_audit", "config_versions"} {
			require.True(t, tableExists(t, db, table), "%s table should exist", table)
		}
	})

	t.Run("Run is idempotent", func(t *testing.T) {
		require.NoError(t, Run(db))

		version, dirty, err := Version(db)
		require.NoError(t, err)
		require.False(t, dirty)
		require.Equal(t, uint(3), version)
	})

	t.Run("session store round trip", func(t *testing.T) {
		store := sessionpg.New(db)
		now := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, store.Create(ctx, &session.Session{
			ID: "tok-1", Username: "admin", Role: "admin",
			CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}))

		got, err := store.Get(ctx, "tok-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "admin", got.Username)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("audit store round trip", func(t *testing.T) {
		store := auditpg.New(db, auditpg.Config{RetentionDays: 30})
		postID := int64(77)
		event := audit.NewEvent().WithActor("writer", "outsource").WithArticle("Hello", "normal")
		event.WithPost(postID, "pending").WithResult(true, "", "", 12)
		require.NoError(t, store.Log(ctx, *event))

		events, err := store.Query(ctx, audit.QueryFilter{Username: "writer"})
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.NotNil(t, events[0].PostID)
		require.Equal(t, postID, *events[0].PostID)
	})

	t.Run("config store keeps one active version", func(t *testing.T) {
		store := configpg.New(db)
		require.NoError(t, store.Save(ctx, []byte("server:\n  name: a\n"), configstore.SaveMeta{Author: "admin"}))
		require.NoError(t, store.Save(ctx, []byte("server:\n  name: b\n"), configstore.SaveMeta{Author: "admin"}))

		data, err := store.Load(ctx)
		require.NoError(t, err)
		require.Contains(t, string(data), "name: b")

		revisions, err := store.History(ctx, 10)
		require.NoError(t, err)
		require.Len(t, revisions, 2)
		require.Equal(t, 2, revisions[0].Version)
	})

	t.Run("Down rolls back migrations", func(t *testing.T) {
		require.NoError(t, Down(db))
		require.False(t, tableExists(t, db, "publish_audit"), "publish_audit table should not exist after down")
	})

	t.Run("Steps applies n migrations", func(t *testing.T) {
		require.NoError(t, Steps(db, 1))
		version, _, err := Version(db)
		require.NoError(t, err)
		require.Equal(t, uint(1), version)

		require.NoError(t, Steps(db, 2))
		version, _, err = Version(db)
		require.NoError(t, err)
		require.Equal(t, uint(3), version)
	})
}
