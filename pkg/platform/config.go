// Package platform holds the gateway configuration: loading, defaults,
// validation and the copy-on-write update used by the admin config endpoint.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Session store kinds.
const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Config store modes.
const (
	ConfigModeFile     = "file"
	ConfigModeDatabase = "database"
)

// Config holds the complete gateway configuration.
// A loaded Config is treated as immutable; use WithUpdate to derive a new one.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	Session     SessionConfig     `yaml:"session"`
	Moderation  ModerationConfig  `yaml:"moderation"`
	CMS         CMSConfig         `yaml:"cms"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Audit       AuditConfig       `yaml:"audit"`
	ConfigStore ConfigStoreConfig `yaml:"config_store"`
}

// ServerConfig configures the HTTP listener and process-wide behavior.
type ServerConfig struct {
	Name            string        `yaml:"name"`
	Address         string        `yaml:"address"`
	LogLevel        string        `yaml:"log_level"`  // debug, info, warn, error
	LogFormat       string        `yaml:"log_format"` // text, json
	SecureCookies   bool          `yaml:"secure_cookies"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds the two static role credentials.
type AuthConfig struct {
	Admin     CredentialConfig `yaml:"admin"`
	Outsource CredentialConfig `yaml:"outsource"`
}

// CredentialConfig is a username/password pair. Password may be plaintext
// or a bcrypt hash.
type CredentialConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SessionConfig configures login sessions.
type SessionConfig struct {
	Store           string        `yaml:"store"` // memory, postgres, redis
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ModerationConfig configures the text moderation provider.
type ModerationConfig struct {
	// Enabled is the global kill-switch. Nil means enabled.
	Enabled        *bool         `yaml:"enabled"`
	Simulate       bool          `yaml:"simulate"`
	APIKey         string        `yaml:"api_key"`
	SecretKey      string        `yaml:"secret_key"`
	TokenURL       string        `yaml:"token_url"`
	CensorURL      string        `yaml:"censor_url"`
	ForbiddenTerms []string      `yaml:"forbidden_terms"`
	TokenTimeout   time.Duration `yaml:"token_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RefreshBefore  time.Duration `yaml:"refresh_before"`
}

// IsEnabled reports whether moderation is switched on.
func (m ModerationConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// CMSConfig configures the WordPress REST client.
type CMSConfig struct {
	Domain             string        `yaml:"domain"`
	Username           string        `yaml:"username"`
	AppPassword        string        `yaml:"app_password"`
	Simulate           bool          `yaml:"simulate"`
	CustomResource     string        `yaml:"custom_resource"`
	HeadlineCategoryID int           `yaml:"headline_category_id"`
	AuthorID           int           `yaml:"author_id"`
	Timeout            time.Duration `yaml:"timeout"`
	UserAgent          string        `yaml:"user_agent"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

// DatabaseConfig configures the optional PostgreSQL connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// RedisConfig configures the optional Redis connection used for sessions.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// AuditConfig configures the publish audit trail.
type AuditConfig struct {
	Enabled        bool `yaml:"enabled"`
	MemoryCapacity int  `yaml:"memory_capacity"`
	RetentionDays  int  `yaml:"retention_days"`
}

// ConfigStoreConfig selects where runtime config updates are persisted.
type ConfigStoreConfig struct {
	Mode string `yaml:"mode"` // file, database
}

// DefaultForbiddenTerms is the simulate-mode term list used when none is configured.
var DefaultForbiddenTerms = []string{"测试敏感词", "违规内容", "政治敏感"}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses YAML configuration, expanding ${VAR} references
// and applying defaults.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied and both
// external clients in simulate mode.
func Default() *Config {
	cfg := &Config{}
	cfg.Moderation.Simulate = true
	cfg.CMS.Simulate = true
	applyDefaults(cfg)
	return cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "wp-publish-gateway"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8004"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = "text"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Session.Store == "" {
		cfg.Session.Store = SessionStoreMemory
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = 10 * time.Minute
	}

	if cfg.Moderation.Enabled == nil {
		enabled := true
		cfg.Moderation.Enabled = &enabled
	}
	if cfg.Moderation.TokenURL == "" {
		cfg.Moderation.TokenURL = "https://aip.baidubce.com/oauth/2.0/token"
	}
	if cfg.Moderation.CensorURL == "" {
		cfg.Moderation.CensorURL = "https://aip.baidubce.com/rest/2.0/solution/v1/text_censor/v2/user_defined"
	}
	if len(cfg.Moderation.ForbiddenTerms) == 0 {
		cfg.Moderation.ForbiddenTerms = slices.Clone(DefaultForbiddenTerms)
	}
	if cfg.Moderation.TokenTimeout == 0 {
		cfg.Moderation.TokenTimeout = 15 * time.Second
	}
	if cfg.Moderation.RequestTimeout == 0 {
		cfg.Moderation.RequestTimeout = 30 * time.Second
	}
	if cfg.Moderation.RefreshBefore == 0 {
		cfg.Moderation.RefreshBefore = 10 * time.Minute
	}

	if cfg.CMS.CustomResource == "" {
		cfg.CMS.CustomResource = "adv_posts"
	}
	if cfg.CMS.HeadlineCategoryID == 0 {
		cfg.CMS.HeadlineCategoryID = 16035
	}
	if cfg.CMS.Timeout == 0 {
		cfg.CMS.Timeout = 30 * time.Second
	}
	if cfg.CMS.UserAgent == "" {
		cfg.CMS.UserAgent = "wp-publish-gateway"
	}

	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "wpgw:session:"
	}
	if cfg.Audit.MemoryCapacity == 0 {
		cfg.Audit.MemoryCapacity = 500
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 90
	}
	if cfg.ConfigStore.Mode == "" {
		cfg.ConfigStore.Mode = ConfigModeFile
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Auth.Admin.Username == "" || c.Auth.Admin.Password == "" {
		errs = append(errs, "auth.admin.username and auth.admin.password are required")
	}
	if c.Auth.Outsource.Username != "" && c.Auth.Outsource.Username == c.Auth.Admin.Username {
		errs = append(errs, "auth.outsource.username must differ from auth.admin.username")
	}

	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStorePostgres:
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required when session.store is postgres")
		}
	case SessionStoreRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, "redis.addr is required when session.store is redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("session.store %q is not one of memory, postgres, redis", c.Session.Store))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, "session.ttl must not be negative")
	}
	if c.Session.CleanupInterval < 0 {
		errs = append(errs, "session.cleanup_interval must not be negative")
	}

	if !c.CMS.Simulate {
		if c.CMS.Domain == "" {
			errs = append(errs, "cms.domain is required unless cms.simulate is set")
		}
		if c.CMS.Username == "" || c.CMS.AppPassword == "" {
			errs = append(errs, "cms.username and cms.app_password are required unless cms.simulate is set")
		}
	}
	if c.CMS.HeadlineCategoryID < 0 {
		errs = append(errs, "cms.headline_category_id must not be negative")
	}

	switch c.ConfigStore.Mode {
	case ConfigModeFile:
	case ConfigModeDatabase:
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required when config_store.mode is database")
		}
	default:
		errs = append(errs, fmt.Sprintf("config_store.mode %q is not one of file, database", c.ConfigStore.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Moderation.ForbiddenTerms = slices.Clone(c.Moderation.ForbiddenTerms)
	if c.Moderation.Enabled != nil {
		enabled := *c.Moderation.Enabled
		clone.Moderation.Enabled = &enabled
	}
	return &clone
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Update is a partial change to the runtime-editable settings. Nil fields
// are left untouched.
type Update struct {
	CMSDomain           *string `json:"cms_domain,omitempty"`
	CMSUsername         *string `json:"cms_username,omitempty"`
	CMSAppPassword      *string `json:"cms_app_password,omitempty"`
	ModerationAPIKey    *string `json:"moderation_api_key,omitempty"`
	ModerationSecretKey *string `json:"moderation_secret_key,omitempty"`
	TestMode            *bool   `json:"test_mode,omitempty"`
	ModerationEnabled   *bool   `json:"moderation_enabled,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.CMSDomain == nil && u.CMSUsername == nil && u.CMSAppPassword == nil &&
		u.ModerationAPIKey == nil && u.ModerationSecretKey == nil &&
		u.TestMode == nil && u.ModerationEnabled == nil
}

// WithUpdate returns a copy of c with u applied, plus the config keys that
// were changed. The receiver is never modified.
func (c *Config) WithUpdate(u Update) (*Config, []string) {
	next := c.Clone()
	var changed []string

	setString := func(dst *string, src *string, key string) {
		if src == nil {
			return
		}
		*dst = strings.TrimSpace(*src)
		changed = append(changed, key)
	}
	setString(&next.CMS.Domain, u.CMSDomain, "cms.domain")
	setString(&next.CMS.Username, u.CMSUsername, "cms.username")
	setString(&next.CMS.AppPassword, u.CMSAppPassword, "cms.app_password")
	setString(&next.Moderation.APIKey, u.ModerationAPIKey, "moderation.api_key")
	setString(&next.Moderation.SecretKey, u.ModerationSecretKey, "moderation.secret_key")

	if u.TestMode != nil {
		next.CMS.Simulate = *u.TestMode
		next.Moderation.Simulate = *u.TestMode
		changed = append(changed, "cms.simulate", "moderation.simulate")
	}
	if u.ModerationEnabled != nil {
		enabled := *u.ModerationEnabled
		next.Moderation.Enabled = &enabled
		changed = append(changed, "moderation.enabled")
	}
	return next, changed
}
