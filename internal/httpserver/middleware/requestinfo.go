package middleware

import (
	"context"
	"net/http"
	"strings"
)

type adminInfoKey struct{}

// AdminInfo is what admin views need to know about the mount point.
type AdminInfo struct {
	// Prefix is prepended to admin links. It is empty when mounted at root.
	Prefix string
	Path   string
}

// AdminMount records where the admin router is mounted so views can build links.
func AdminMount(basePath string) func(http.Handler) http.Handler {
	prefix := NormalizeBasePath(basePath)
	if prefix == "/" {
		prefix = ""
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := AdminInfo{Prefix: prefix, Path: r.URL.Path}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminInfoKey{}, info)))
		})
	}
}

// AdminPrefix returns the link prefix stored by AdminMount.
func AdminPrefix(ctx context.Context) string {
	info, _ := ctx.Value(adminInfoKey{}).(AdminInfo)
	return info.Prefix
}

// NormalizeBasePath returns base with one leading slash and no trailing one.
// Empty input selects /admin.
func NormalizeBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return "/admin"
	}
	return "/" + strings.Trim(base, "/")
}
