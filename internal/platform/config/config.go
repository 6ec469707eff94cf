package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	envPrefix = "ULUK_"

	defaultConfigFile      = "site.yaml"
	defaultEnvFile         = ".env"
	defaultAddr            = ":8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLocale          = "ru-RU"
	defaultTimezone        = "Local"
	defaultStoreDriver     = "sqlite"
	defaultSQLitePath      = "data/site.db"
	defaultCollection      = "site_state"
	defaultAdminBasePath   = "/admin"
	defaultCookieName      = "uluk_admin_ok"
	defaultSessionIdle     = 30 * time.Minute
	defaultSessionLifetime = 12 * time.Hour
	defaultCSRFCookie      = "uluk_csrf"
	defaultCSRFHeader      = "X-CSRF-Token"
	defaultCSRFField       = "csrf_token"
	defaultLeadFieldLimit  = 2000
	defaultBackupPrefix    = "backups/"
)

// Store drivers accepted by Store.Driver.
const (
	DriverMemory    = "memory"
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

// Config captures runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Site      SiteConfig
	Store     StoreConfig
	Firestore FirestoreConfig
	Admin     AdminConfig
	Session   SessionConfig
	CSRF      CSRFConfig
	Leads     LeadsConfig
	Notify    NotifyConfig
	Backup    BackupConfig
	CORS      CORSConfig
	Log       LogConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SiteConfig describes the public site.
type SiteConfig struct {
	Locale string
	// DefaultContentPath points at a JSON document used instead of the bundled default.
	DefaultContentPath string
	Timezone           string
	Location           *time.Location
}

// StoreConfig selects the persistent store backend.
type StoreConfig struct {
	Driver     string
	SQLitePath string
	Collection string
}

// FirestoreConfig stores Firestore connection parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// AdminConfig configures the admin panel and its credential check.
type AdminConfig struct {
	BasePath          string
	PasswordHash      string
	FirebaseProjectID string
}

// SessionConfig controls the admin session cookie.
type SessionConfig struct {
	CookieName  string
	HashKey     string
	BlockKey    string
	IdleTimeout time.Duration
	Lifetime    time.Duration
	Secure      bool
}

// CSRFConfig controls double-submit protection on admin forms.
type CSRFConfig struct {
	CookieName string
	HeaderName string
	FieldName  string
}

// LeadsConfig limits lead payloads.
type LeadsConfig struct {
	MaxFieldLength int
}

// NotifyConfig enables Pub/Sub notifications for new leads.
type NotifyConfig struct {
	ProjectID string
	Topic     string
}

// BackupConfig names the Cloud Storage destination for `site backup`.
type BackupConfig struct {
	Bucket string
	Prefix string
}

// CORSConfig lists origins allowed to call the JSON API.
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig tunes the zap logger.
type LogConfig struct {
	Level       string
	Development bool
}

// SecretResolver resolves secret references such as secret://projects/p/secrets/s/versions/latest.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists every missing or invalid field.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes a failed secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	configFile    string
	envFile       string
	envMap        map[string]string
	useSystemEnv  bool
	secret        SecretResolver
	adminOptional bool
}

// WithConfigFile sets the YAML file read as the lowest-precedence source. An empty path disables it.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile overrides the .env file path. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects explicit values that take precedence over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv stops Load from reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// and sm:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithoutAdminCredentials skips the admin credential check for tools that
// never serve the panel.
func WithoutAdminCredentials() Option {
	return func(o *loaderOptions) { o.adminOptional = true }
}

// EnvName returns the environment variable that overrides a dotted setting path.
func EnvName(path string) string {
	return envPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(path))
}

// Load assembles the configuration from, in increasing precedence: the YAML file,
// the .env file, the process environment and WithEnvMap values.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		configFile:   defaultConfigFile,
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}

	src, err := newSources(options)
	if err != nil {
		return Config{}, err
	}
	lookup := src.lookup

	cfg := Config{
		Server: ServerConfig{
			Addr:            stringWithDefault(lookup, "server.addr", defaultAddr),
			ReadTimeout:     durationWithDefault(lookup, "server.read_timeout", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "server.write_timeout", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "server.idle_timeout", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "server.shutdown_timeout", defaultShutdownTimeout),
		},
		Site: SiteConfig{
			Locale:             stringWithDefault(lookup, "site.locale", defaultLocale),
			DefaultContentPath: stringWithDefault(lookup, "site.default_content_path", ""),
			Timezone:           stringWithDefault(lookup, "site.timezone", defaultTimezone),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(stringWithDefault(lookup, "store.driver", defaultStoreDriver)),
			SQLitePath: stringWithDefault(lookup, "store.sqlite_path", defaultSQLitePath),
			Collection: stringWithDefault(lookup, "store.collection", defaultCollection),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "firestore.project_id", ""),
			EmulatorHost: stringWithDefault(lookup, "firestore.emulator_host", ""),
		},
		Admin: AdminConfig{
			BasePath:          stringWithDefault(lookup, "admin.base_path", defaultAdminBasePath),
			PasswordHash:      stringWithDefault(lookup, "admin.password_hash", ""),
			FirebaseProjectID: stringWithDefault(lookup, "admin.firebase_project_id", ""),
		},
		Session: SessionConfig{
			CookieName:  stringWithDefault(lookup, "session.cookie_name", defaultCookieName),
			HashKey:     stringWithDefault(lookup, "session.hash_key", ""),
			BlockKey:    stringWithDefault(lookup, "session.block_key", ""),
			IdleTimeout: durationWithDefault(lookup, "session.idle_timeout", defaultSessionIdle),
			Lifetime:    durationWithDefault(lookup, "session.lifetime", defaultSessionLifetime),
			Secure:      boolWithDefault(lookup, "session.secure", false),
		},
		CSRF: CSRFConfig{
			CookieName: stringWithDefault(lookup, "csrf.cookie_name", defaultCSRFCookie),
			HeaderName: stringWithDefault(lookup, "csrf.header_name", defaultCSRFHeader),
			FieldName:  stringWithDefault(lookup, "csrf.field_name", defaultCSRFField),
		},
		Leads: LeadsConfig{
			MaxFieldLength: intWithDefault(lookup, "leads.max_field_length", defaultLeadFieldLimit),
		},
		Notify: NotifyConfig{
			ProjectID: stringWithDefault(lookup, "notify.project_id", ""),
			Topic:     stringWithDefault(lookup, "notify.topic", ""),
		},
		Backup: BackupConfig{
			Bucket: stringWithDefault(lookup, "backup.bucket", ""),
			Prefix: stringWithDefault(lookup, "backup.prefix", defaultBackupPrefix),
		},
		CORS: CORSConfig{
			AllowedOrigins: csvWithDefault(lookup, "cors.allowed_origins"),
		},
		Log: LogConfig{
			Level:       stringWithDefault(lookup, "log.level", ""),
			Development: boolWithDefault(lookup, "log.development", false),
		},
	}

	if cfg.Notify.ProjectID == "" {
		cfg.Notify.ProjectID = cfg.Firestore.ProjectID
	}

	secretFields := []*string{
		&cfg.Admin.PasswordHash,
		&cfg.Session.HashKey,
		&cfg.Session.BlockKey,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(&cfg, !options.adminOptional); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config, requireAdmin bool) error {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		invalid = append(invalid, "Server.Addr")
	}
	if _, err := language.Parse(cfg.Site.Locale); err != nil {
		invalid = append(invalid, "Site.Locale")
	}
	loc, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		invalid = append(invalid, "Site.Timezone")
	} else {
		cfg.Site.Location = loc
	}

	switch cfg.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(cfg.Store.SQLitePath) == "" {
			invalid = append(invalid, "Store.SQLitePath")
		}
	case DriverFirestore:
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
		if strings.TrimSpace(cfg.Store.Collection) == "" {
			invalid = append(invalid, "Store.Collection")
		}
	default:
		invalid = append(invalid, "Store.Driver")
	}

	if !strings.HasPrefix(cfg.Admin.BasePath, "/") || strings.Trim(cfg.Admin.BasePath, "/") == "" {
		invalid = append(invalid, "Admin.BasePath")
	}
	if requireAdmin && cfg.Admin.FirebaseProjectID == "" {
		if !strings.HasPrefix(cfg.Admin.PasswordHash, "$2") {
			invalid = append(invalid, "Admin.PasswordHash")
		}
	}

	if cfg.Session.HashKey != "" && len(cfg.Session.HashKey) < 32 {
		invalid = append(invalid, "Session.HashKey")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		invalid = append(invalid, "Session.BlockKey")
	}
	if cfg.Session.IdleTimeout <= 0 {
		invalid = append(invalid, "Session.IdleTimeout")
	}
	if cfg.Session.Lifetime <= 0 {
		invalid = append(invalid, "Session.Lifetime")
	}
	if strings.TrimSpace(cfg.CSRF.HeaderName) == "" {
		invalid = append(invalid, "CSRF.HeaderName")
	}
	if cfg.Leads.MaxFieldLength <= 0 {
		invalid = append(invalid, "Leads.MaxFieldLength")
	}
	if cfg.Notify.Topic != "" && cfg.Notify.ProjectID == "" {
		invalid = append(invalid, "Notify.ProjectID")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !isSecretReference(trimmed) {
		return value, nil
	}
	ref := normalizeSecretReference(trimmed)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func isSecretReference(value string) bool {
	return strings.HasPrefix(value, "secret://") || strings.HasPrefix(value, "sm://")
}

func normalizeSecretReference(value string) string {
	if strings.HasPrefix(value, "sm://") {
		return "secret://" + strings.TrimPrefix(value, "sm://")
	}
	return value
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
