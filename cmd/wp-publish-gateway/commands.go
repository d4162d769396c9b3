package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/spf13/cobra"

	"github.com/txn2/wp-publish-gateway/internal/server"
	"github.com/txn2/wp-publish-gateway/pkg/cms"
	"github.com/txn2/wp-publish-gateway/pkg/database/migrate"
	"github.com/txn2/wp-publish-gateway/pkg/moderation"
	"github.com/txn2/wp-publish-gateway/pkg/platform"
)

const (
	configEnvVar = "WPGW_CONFIG"
	checkTimeout = 30 * time.Second
	checkText    = "connectivity check"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "wp-publish-gateway",
		Short:         "Moderating publish gateway in front of a WordPress site",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(configEnvVar),
		"Path to configuration file (env "+configEnvVar+")")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newCheckCommand(opts),
		newVersionCommand(),
	)
	return root
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wp-publish-gateway version %s (commit %s, built %s)\n",
				server.Version, server.Commit, server.Date)
		},
	}
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify CMS credentials and moderation connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()
			return runCheck(ctx, cmd.OutOrStdout(), cfg)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	withDB := func(cmd *cobra.Command, fn func(db *sql.DB) error) error {
		cfg, err := loadConfig(opts.configPath, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		db, err := openDatabase(cmd.Context(), cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return fn(db)
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, migrate.Run)
		},
	}

	var confirm bool
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations, dropping gateway tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("refusing to drop gateway tables without --yes")
			}
			return withDB(cmd, migrate.Down)
		},
	}
	downCmd.Flags().BoolVar(&confirm, "yes", false, "Confirm rolling back every migration")

	stepsCmd := &cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations (negative rolls back)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q: %w", args[0], err)
			}
			return withDB(cmd, func(db *sql.DB) error {
				return migrate.Steps(db, n)
			})
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(db *sql.DB) error {
				version, dirty, err := migrate.Version(db)
				if err != nil {
					return fmt.Errorf("reading schema version: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	}

	// "migrate" without a subcommand means "migrate up".
	migrateCmd.RunE = upCmd.RunE
	migrateCmd.AddCommand(upCmd, downCmd, stepsCmd, versionCmd)
	return migrateCmd
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts.configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := server.New(ctx, server.WithConfig(cfg), server.WithConfigPath(opts.configPath))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Warn("closing server", "error", err)
		}
	}()

	return s.Run(ctx)
}

// runCheck pings the CMS and screens a short probe text. Simulated
// clients are reported as such.
func runCheck(ctx context.Context, out io.Writer, cfg *platform.Config) error {
	client := cms.New(cms.Config{
		Domain:             cfg.CMS.Domain,
		Username:           cfg.CMS.Username,
		AppPassword:        cfg.CMS.AppPassword,
		Simulate:           cfg.CMS.Simulate,
		Timeout:            cfg.CMS.Timeout,
		UserAgent:          cfg.CMS.UserAgent,
		InsecureSkipVerify: cfg.CMS.InsecureSkipVerify,
	}, nil)

	var failed []string
	if err := client.Ping(ctx); err != nil {
		_, _ = fmt.Fprintf(out, "cms:        FAIL %v\n", err)
		failed = append(failed, "cms")
	} else {
		_, _ = fmt.Fprintf(out, "cms:        ok%s\n", simulatedSuffix(client.Simulated()))
	}

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
	}, nil)

	res, err := moderator.Audit(ctx, checkText)
	switch {
	case err != nil:
		_, _ = fmt.Fprintf(out, "moderation: FAIL %v\n", err)
		failed = append(failed, "moderation")
	default:
		_, _ = fmt.Fprintf(out, "moderation: ok (%s)%s\n", res.Conclusion, simulatedSuffix(moderator.Simulated()))
	}

	if len(failed) > 0 {
		return fmt.Errorf("checks failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

func simulatedSuffix(simulated bool) string {
	if simulated {
		return " [simulated]"
	}
	return ""
}

func loadConfig(path string, logOut io.Writer) (*platform.Config, error) {
	if path == "" {
		return nil, errors.New("no configuration file: pass --config or set " + configEnvVar)
	}
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(logOut, cfg.Server.LogLevel, cfg.Server.LogFormat))
	return cfg, nil
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database.dsn is not configured")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
