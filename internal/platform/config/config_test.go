package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

const testHash = "$2a$10$abcdefghijklmnopqrstuuJ9v1hG5y0Q0t1mQ6m9Q0s7l8c3YxW2"

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"ULUK_ADMIN_PASSWORD_HASH": testHash,
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Site.Locale != "ru-RU" {
		t.Errorf("expected default locale ru-RU, got %s", cfg.Site.Locale)
	}
	if cfg.Site.Location == nil {
		t.Errorf("expected location to be resolved")
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver by default, got %s", cfg.Store.Driver)
	}
	if cfg.Session.CookieName != "uluk_admin_ok" {
		t.Errorf("unexpected cookie name: %s", cfg.Session.CookieName)
	}
	if cfg.Session.IdleTimeout != 30*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Session.IdleTimeout)
	}
	if cfg.Admin.BasePath != "/admin" {
		t.Errorf("unexpected admin base path: %s", cfg.Admin.BasePath)
	}
	if cfg.Leads.MaxFieldLength != 2000 {
		t.Errorf("unexpected lead field limit: %d", cfg.Leads.MaxFieldLength)
	}
	if len(cfg.CORS.AllowedOrigins) != 0 {
		t.Errorf("expected no allowed origins, got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"ULUK_SERVER_ADDR":            ":9090",
		"ULUK_SERVER_READ_TIMEOUT":    "20s",
		"ULUK_SITE_LOCALE":            "en-US",
		"ULUK_SITE_TIMEZONE":          "UTC",
		"ULUK_STORE_DRIVER":           "FIRESTORE",
		"ULUK_FIRESTORE_PROJECT_ID":   "uluk-prod",
		"ULUK_ADMIN_PASSWORD_HASH":    "sm://admin/hash",
		"ULUK_SESSION_HASH_KEY":       "secret://session/hash",
		"ULUK_SESSION_SECURE":         "true",
		"ULUK_NOTIFY_TOPIC":           "leads",
		"ULUK_CORS_ALLOWED_ORIGINS":   "https://a.example, https://b.example ,",
		"ULUK_LEADS_MAX_FIELD_LENGTH": "500",
	}

	secrets := map[string]string{
		"secret://admin/hash":   testHash,
		"secret://session/hash": "0123456789abcdef0123456789abcdef",
	}
	var calls []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		calls = append(calls, ref)
		value, ok := secrets[ref]
		if !ok {
			return "", errors.New("not found")
		}
		return value, nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected addr override, got %s", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Store.Driver != DriverFirestore {
		t.Errorf("expected lowercased driver, got %s", cfg.Store.Driver)
	}
	if cfg.Admin.PasswordHash != testHash {
		t.Errorf("expected resolved password hash, got %s", cfg.Admin.PasswordHash)
	}
	if len(cfg.Session.HashKey) != 32 {
		t.Errorf("expected resolved hash key, got %q", cfg.Session.HashKey)
	}
	if !cfg.Session.Secure {
		t.Errorf("expected secure cookie")
	}
	if cfg.Notify.ProjectID != "uluk-prod" {
		t.Errorf("expected notify project to default to firestore project, got %s", cfg.Notify.ProjectID)
	}
	if !slices.Equal(cfg.CORS.AllowedOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Leads.MaxFieldLength != 500 {
		t.Errorf("unexpected lead field limit: %d", cfg.Leads.MaxFieldLength)
	}
	if !slices.Contains(calls, "secret://admin/hash") {
		t.Errorf("expected sm:// to be normalised, calls %v", calls)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"ULUK_STORE_DRIVER":        "postgres",
		"ULUK_SITE_LOCALE":         "not a locale!",
		"ULUK_SITE_TIMEZONE":       "Mars/Olympus",
		"ULUK_SESSION_HASH_KEY":    "short",
		"ULUK_SESSION_BLOCK_KEY":   "seven77",
		"ULUK_ADMIN_PASSWORD_HASH": "plaintext",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	want := []string{"Site.Locale", "Site.Timezone", "Store.Driver", "Admin.PasswordHash", "Session.HashKey", "Session.BlockKey"}
	for _, field := range want {
		if !slices.Contains(verr.Fields(), field) {
			t.Errorf("expected %s in %v", field, verr.Fields())
		}
	}
}

func TestLoadFirebaseAdminSkipsPasswordHash(t *testing.T) {
	env := map[string]string{
		"ULUK_ADMIN_FIREBASE_PROJECT_ID": "uluk-auth",
		"ULUK_STORE_DRIVER":              "memory",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Admin.PasswordHash != "" {
		t.Errorf("expected empty hash, got %s", cfg.Admin.PasswordHash)
	}
}

func TestLoadSecretFailure(t *testing.T) {
	env := map[string]string{
		"ULUK_ADMIN_PASSWORD_HASH": "secret://missing",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(""))
	var serr *SecretError
	if !errors.As(err, &serr) {
		t.Fatalf("expected secret error, got %v", err)
	}
	if serr.Ref != "secret://missing" {
		t.Errorf("unexpected ref: %s", serr.Ref)
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "site.yaml")
	yamlBody := "server:\n  addr: \":7000\"\n  read_timeout: 5s\nsite:\n  timezone: UTC\nleads:\n  max_field_length: 300\ncors:\n  allowed_origins:\n    - https://yaml.example\nadmin:\n  password_hash: \"" + testHash + "\"\n"
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	envPath := filepath.Join(dir, ".env")
	envBody := "# comment\nexport ULUK_SERVER_READ_TIMEOUT=\"9s\"\nULUK_SITE_LOCALE='kk-KZ'\n"
	if err := os.WriteFile(envPath, []byte(envBody), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	env := map[string]string{"ULUK_SITE_LOCALE": "en-GB"}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(envPath), WithConfigFile(yamlPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Addr != ":7000" {
		t.Errorf("expected addr from yaml, got %s", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 9*time.Second {
		t.Errorf("expected .env to override yaml, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Site.Locale != "en-GB" {
		t.Errorf("expected env map to win, got %s", cfg.Site.Locale)
	}
	if cfg.Leads.MaxFieldLength != 300 {
		t.Errorf("expected yaml int, got %d", cfg.Leads.MaxFieldLength)
	}
	if !slices.Equal(cfg.CORS.AllowedOrigins, []string{"https://yaml.example"}) {
		t.Errorf("expected yaml list, got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := Config{
		Admin:   AdminConfig{PasswordHash: testHash},
		Session: SessionConfig{HashKey: "k"},
	}
	out := cfg.Redacted()

	admin := out["admin"].(map[string]any)
	if admin["password_hash"] != redactedValue {
		t.Errorf("expected redacted hash, got %v", admin["password_hash"])
	}
	session := out["session"].(map[string]any)
	if session["block_key"] != "" {
		t.Errorf("expected empty block key to stay empty, got %v", session["block_key"])
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("session.idle_timeout"); got != "ULUK_SESSION_IDLE_TIMEOUT" {
		t.Errorf("unexpected env name %s", got)
	}
}

func TestLoadWithoutAdminCredentials(t *testing.T) {
	env := map[string]string{"ULUK_STORE_DRIVER": "memory"}

	if _, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile("")); err == nil {
		t.Fatal("expected missing password hash to fail validation")
	}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(""), WithoutAdminCredentials())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("unexpected driver %s", cfg.Store.Driver)
	}
}
