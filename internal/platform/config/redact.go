package config

import (
	"strings"
)

const redactedValue = "[redacted]"

// Redacted returns the effective settings as a nested map keyed by their
// YAML paths, with credentials masked.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"addr":             c.Server.Addr,
			"read_timeout":     c.Server.ReadTimeout.String(),
			"write_timeout":    c.Server.WriteTimeout.String(),
			"idle_timeout":     c.Server.IdleTimeout.String(),
			"shutdown_timeout": c.Server.ShutdownTimeout.String(),
		},
		"site": map[string]any{
			"locale":               c.Site.Locale,
			"default_content_path": c.Site.DefaultContentPath,
			"timezone":             c.Site.Timezone,
		},
		"store": map[string]any{
			"driver":      c.Store.Driver,
			"sqlite_path": c.Store.SQLitePath,
			"collection":  c.Store.Collection,
		},
		"firestore": map[string]any{
			"project_id":    c.Firestore.ProjectID,
			"emulator_host": c.Firestore.EmulatorHost,
		},
		"admin": map[string]any{
			"base_path":           c.Admin.BasePath,
			"password_hash":       redact(c.Admin.PasswordHash),
			"firebase_project_id": c.Admin.FirebaseProjectID,
		},
		"session": map[string]any{
			"cookie_name":  c.Session.CookieName,
			"hash_key":     redact(c.Session.HashKey),
			"block_key":    redact(c.Session.BlockKey),
			"idle_timeout": c.Session.IdleTimeout.String(),
			"lifetime":     c.Session.Lifetime.String(),
			"secure":       c.Session.Secure,
		},
		"csrf": map[string]any{
			"cookie_name": c.CSRF.CookieName,
			"header_name": c.CSRF.HeaderName,
			"field_name":  c.CSRF.FieldName,
		},
		"leads": map[string]any{
			"max_field_length": c.Leads.MaxFieldLength,
		},
		"notify": map[string]any{
			"project_id": c.Notify.ProjectID,
			"topic":      c.Notify.Topic,
		},
		"backup": map[string]any{
			"bucket": c.Backup.Bucket,
			"prefix": c.Backup.Prefix,
		},
		"cors": map[string]any{
			"allowed_origins": strings.Join(c.CORS.AllowedOrigins, ","),
		},
		"log": map[string]any{
			"level":       c.Log.Level,
			"development": c.Log.Development,
		},
	}
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return redactedValue
}
