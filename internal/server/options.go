package server

import (
	"database/sql"
	"net/http"

	goredis "github.com/redis/go-redis/v9"

	"github.com/txn2/wp-publish-gateway/pkg/audit"
	"github.com/txn2/wp-publish-gateway/pkg/configstore"
	"github.com/txn2/wp-publish-gateway/pkg/platform"
	"github.com/txn2/wp-publish-gateway/pkg/session"
)

// Options configures the server.
type Options struct {
	// Config is the gateway configuration.
	Config *platform.Config

	// ConfigPath is the YAML file config updates are written back to in file mode.
	// Empty means updates cannot be persisted.
	ConfigPath string

	// DB connection (optional, will be opened from database.dsn if not provided).
	DB *sql.DB

	// Redis client (optional, will be created from redis.addr if not provided).
	Redis goredis.UniversalClient

	// SessionStore (optional, will be created from session.store if not provided).
	SessionStore session.Store

	// AuditLogger (optional, will be created from the audit section if not provided).
	AuditLogger audit.Logger

	// ConfigStore (optional, will be created from config_store.mode if not provided).
	ConfigStore configstore.Store

	// HTTPClient is used for outbound moderation and CMS calls (optional).
	// When set, cms.insecure_skip_verify is ignored.
	HTTPClient *http.Client
}

// Option is a functional option for configuring the server.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *platform.Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithConfigPath sets the file config updates are persisted to.
func WithConfigPath(path string) Option {
	return func(o *Options) {
		o.ConfigPath = path
	}
}

// WithDB sets the database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithRedis sets the Redis client.
func WithRedis(rdb goredis.UniversalClient) Option {
	return func(o *Options) {
		o.Redis = rdb
	}
}

// WithSessionStore sets the session store.
func WithSessionStore(store session.Store) Option {
	return func(o *Options) {
		o.SessionStore = store
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(l audit.Logger) Option {
	return func(o *Options) {
		o.AuditLogger = l
	}
}

// WithConfigStore sets the config store.
func WithConfigStore(store configstore.Store) Option {
	return func(o *Options) {
		o.ConfigStore = store
	}
}

// WithHTTPClient sets the client used for outbound moderation and CMS calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}
