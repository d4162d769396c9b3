// Package server assembles the gateway from its configuration: storage
// backends, session and audit stores, the publish pipeline, and the HTTP
// listener. It owns the live configuration snapshot and swaps it on reload.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq" // postgres driver
	goredis "github.com/redis/go-redis/v9"

	_ "github.com/txn2/wp-publish-gateway/internal/apidocs" // register swagger docs
	"github.com/txn2/wp-publish-gateway/pkg/api"
	"github.com/txn2/wp-publish-gateway/pkg/audit"
	auditpg "github.com/txn2/wp-publish-gateway/pkg/audit/postgres"
	"github.com/txn2/wp-publish-gateway/pkg/auth"
	"github.com/txn2/wp-publish-gateway/pkg/cms"
	"github.com/txn2/wp-publish-gateway/pkg/configstore"
	configpg "github.com/txn2/wp-publish-gateway/pkg/configstore/postgres"
	"github.com/txn2/wp-publish-gateway/pkg/database/migrate"
	"github.com/txn2/wp-publish-gateway/pkg/health"
	"github.com/txn2/wp-publish-gateway/pkg/middleware"
	"github.com/txn2/wp-publish-gateway/pkg/moderation"
	"github.com/txn2/wp-publish-gateway/pkg/platform"
	"github.com/txn2/wp-publish-gateway/pkg/publish"
	"github.com/txn2/wp-publish-gateway/pkg/session"
	sessionpg "github.com/txn2/wp-publish-gateway/pkg/session/postgres"
	sessionredis "github.com/txn2/wp-publish-gateway/pkg/session/redis"
)

// Build information, set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const (
	connectTimeout       = 10 * time.Second
	auditCleanupInterval = 24 * time.Hour
	readHeaderTimeout    = 10 * time.Second
)

// Server is a configured gateway instance.
type Server struct {
	boot       *platform.Config
	httpClient *http.Client

	db           *sql.DB
	rdb          goredis.UniversalClient
	sessionStore session.Store
	sessions     *session.Manager
	auditLog     audit.Logger
	configStore  configstore.Store
	checker      *health.Checker
	handler      http.Handler

	snapshot atomic.Pointer[api.Snapshot]
	reloadMu sync.Mutex

	closers []func() error
}

// New creates a server. Components not supplied through opts are built
// from the configuration.
func New(ctx context.Context, opts ...Option) (*Server, error) {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Config == nil {
		return nil, errors.New("config is required")
	}
	if err := o.Config.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		boot:       o.Config,
		httpClient: o.HTTPClient,
		checker:    health.NewChecker(),
	}
	if err := s.init(ctx, o); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) init(ctx context.Context, o *Options) error {
	if err := s.initDatabase(ctx, o.DB); err != nil {
		return err
	}
	if err := s.initRedis(ctx, o.Redis); err != nil {
		return err
	}

	cfg, err := s.initConfigStore(ctx, o.ConfigStore, o.ConfigPath)
	if err != nil {
		return err
	}

	if err := s.initSessions(o.SessionStore); err != nil {
		return err
	}
	s.initAudit(o.AuditLogger)

	s.snapshot.Store(s.buildSnapshot(cfg))

	apiHandler := api.NewHandler(api.Deps{
		Sessions:      s.sessions,
		Snapshots:     s,
		Reloader:      s,
		ConfigStore:   s.configStore,
		Audit:         s.auditLog,
		Health:        s.checker,
		SecureCookies: s.boot.Server.SecureCookies,
		Version:       Version,
	})
	s.handler = middleware.NewChain(
		middleware.AssignRequestID(),
		middleware.AccessLog(),
		middleware.Recover(),
	).Then(apiHandler)
	return nil
}

// initDatabase opens the PostgreSQL connection when a DSN is configured and
// applies migrations when auto_migrate is set.
func (s *Server) initDatabase(ctx context.Context, db *sql.DB) error {
	dbCfg := s.boot.Database
	if db == nil && dbCfg.DSN == "" {
		return nil
	}
	if db == nil {
		opened, err := openDatabase(ctx, dbCfg)
		if err != nil {
			return err
		}
		db = opened
		s.closers = append(s.closers, db.Close)
	}
	s.db = db

	if dbCfg.AutoMigrate {
		if err := migrate.Run(db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
	}
	s.checker.Register("database", db.PingContext)
	return nil
}

func openDatabase(ctx context.Context, cfg platform.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// initRedis connects to Redis when an address is configured.
func (s *Server) initRedis(ctx context.Context, rdb goredis.UniversalClient) error {
	redisCfg := s.boot.Redis
	if rdb == nil && redisCfg.Addr == "" {
		return nil
	}
	if rdb == nil {
		client := goredis.NewClient(&goredis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("pinging redis: %w", err)
		}
		rdb = client
		s.closers = append(s.closers, client.Close)
	}
	s.rdb = rdb
	s.checker.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	return nil
}

// initConfigStore selects the config store and returns the configuration to
// run with. In database mode the active stored config wins over the file;
// an empty table is seeded from the file.
func (s *Server) initConfigStore(ctx context.Context, store configstore.Store, path string) (*platform.Config, error) {
	cfg := s.boot
	if store == nil {
		switch cfg.ConfigStore.Mode {
		case platform.ConfigModeDatabase:
			if s.db == nil {
				return nil, errors.New("config_store.mode database requires a database connection")
			}
			store = configpg.New(s.db)
		default:
			data, err := cfg.Marshal()
			if err != nil {
				return nil, err
			}
			store = configstore.NewFileStore(path, data)
		}
	}
	s.configStore = store

	if store.Mode() != configstore.ModeDatabase {
		return cfg, nil
	}

	data, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading stored config: %w", err)
	}
	if data == nil {
		seed, err := cfg.Marshal()
		if err != nil {
			return nil, err
		}
		if err := store.Save(ctx, seed, configstore.SaveMeta{Author: "bootstrap", Comment: "initial config"}); err != nil {
			return nil, fmt.Errorf("seeding config store: %w", err)
		}
		slog.Info("config store seeded from file")
		return cfg, nil
	}

	stored, err := platform.LoadConfigFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing stored config: %w", err)
	}
	// connection settings always come from the bootstrap file
	stored.Server = cfg.Server
	stored.Database = cfg.Database
	stored.Redis = cfg.Redis
	stored.Session = cfg.Session
	stored.ConfigStore = cfg.ConfigStore
	if err := stored.Validate(); err != nil {
		return nil, fmt.Errorf("validating stored config: %w", err)
	}
	slog.Info("using stored config", "mode", store.Mode())
	return stored, nil
}

// initSessions builds the session store selected by session.store.
func (s *Server) initSessions(store session.Store) error {
	sessCfg := s.boot.Session
	if store == nil {
		switch sessCfg.Store {
		case platform.SessionStorePostgres:
			if s.db == nil {
				return errors.New("session.store postgres requires a database connection")
			}
			pg := sessionpg.New(s.db)
			pg.StartCleanupRoutine(sessCfg.CleanupInterval)
			store = pg
		case platform.SessionStoreRedis:
			if s.rdb == nil {
				return errors.New("session.store redis requires a redis connection")
			}
			store = sessionredis.New(s.rdb, s.boot.Redis.KeyPrefix)
		default:
			mem := session.NewMemoryStore()
			mem.StartCleanupRoutine(sessCfg.CleanupInterval)
			store = mem
		}
		s.closers = append(s.closers, store.Close)
	}
	s.sessionStore = store
	s.sessions = session.NewManager(store, sessCfg.TTL)
	slog.Info("session store ready", "store", sessCfg.Store, "ttl", sessCfg.TTL)
	return nil
}

// initAudit builds the publish audit log. PostgreSQL is used when a
// database is available, otherwise an in-memory ring.
func (s *Server) initAudit(l audit.Logger) {
	if l != nil {
		s.auditLog = l
		return
	}
	auditCfg := s.boot.Audit
	if !auditCfg.Enabled {
		return
	}
	if s.db != nil {
		pg := auditpg.New(s.db, auditpg.Config{RetentionDays: auditCfg.RetentionDays})
		pg.StartCleanupRoutine(auditCleanupInterval)
		s.auditLog = pg
	} else {
		s.auditLog = audit.NewMemoryLogger(auditCfg.MemoryCapacity)
	}
	s.closers = append(s.closers, s.auditLog.Close)
}

// buildSnapshot constructs the config-derived clients for cfg.
func (s *Server) buildSnapshot(cfg *platform.Config) *api.Snapshot {
	cmsClient := cms.New(cms.Config{
		Domain:             cfg.CMS.Domain,
		Username:           cfg.CMS.Username,
		AppPassword:        cfg.CMS.AppPassword,
		Simulate:           cfg.CMS.Simulate,
		CustomResource:     cfg.CMS.CustomResource,
		HeadlineCategoryID: cfg.CMS.HeadlineCategoryID,
		AuthorID:           cfg.CMS.AuthorID,
		Timeout:            cfg.CMS.Timeout,
		UserAgent:          cfg.CMS.UserAgent,
		InsecureSkipVerify: cfg.CMS.InsecureSkipVerify,
	}, s.httpClient)

	moderator := moderation.New(moderation.Config{
		Enabled:        cfg.Moderation.IsEnabled(),
		Simulate:       cfg.Moderation.Simulate,
		APIKey:         cfg.Moderation.APIKey,
		SecretKey:      cfg.Moderation.SecretKey,
		TokenURL:       cfg.Moderation.TokenURL,
		CensorURL:      cfg.Moderation.CensorURL,
		ForbiddenTerms: cfg.Moderation.ForbiddenTerms,
		TokenTimeout:   cfg.Moderation.TokenTimeout,
		RequestTimeout: cfg.Moderation.RequestTimeout,
		RefreshBefore:  cfg.Moderation.RefreshBefore,
	}, s.httpClient)

	return &api.Snapshot{
		Config: cfg,
		Verifier: auth.NewVerifier(
			auth.Credential{Username: cfg.Auth.Admin.Username, Password: cfg.Auth.Admin.Password},
			auth.Credential{Username: cfg.Auth.Outsource.Username, Password: cfg.Auth.Outsource.Password},
		),
		Publisher: publish.New(publish.Config{ModerationEnabled: cfg.Moderation.IsEnabled()}, moderator, cmsClient, s.auditLog),
		Reports:   cmsClient,
	}
}

// Current returns the live snapshot.
func (s *Server) Current() *api.Snapshot {
	return s.snapshot.Load()
}

// Reload validates cfg, builds new clients from it, persists it, and only
// then makes it live. On any error the running snapshot is unchanged.
func (s *Server) Reload(ctx context.Context, cfg *platform.Config, meta configstore.SaveMeta) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}
	next := s.buildSnapshot(cfg)

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := s.configStore.Save(ctx, data, meta); err != nil {
		return fmt.Errorf("persisting config: %w", err)
	}

	s.snapshot.Store(next)
	slog.Info("config reloaded",
		"author", meta.Author,
		"moderation_enabled", cfg.Moderation.IsEnabled(),
		"cms_simulate", cfg.CMS.Simulate,
		"moderation_simulate", cfg.Moderation.Simulate,
	)
	return nil
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Health returns the readiness tracker.
func (s *Server) Health() *health.Checker {
	return s.checker
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srvCfg := s.boot.Server
	srv := &http.Server{
		Addr:              srvCfg.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       srvCfg.ReadTimeout,
		WriteTimeout:      srvCfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.checker.SetReady()
	slog.Info("gateway listening", "address", srvCfg.Address, "version", Version)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.checker.SetDraining()
	slog.Info("shutting down", "timeout", srvCfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), srvCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// Close releases every resource the server created, in reverse order.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("errors closing server: %w", errors.Join(errs...))
	}
	return nil
}

// Verify interface compliance.
var (
	_ api.SnapshotSource = (*Server)(nil)
	_ api.Reloader       = (*Server)(nil)
)
