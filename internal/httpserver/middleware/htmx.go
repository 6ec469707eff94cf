package middleware

import (
	"context"
	"net/http"
	"strings"
)

type htmxKey struct{}

// HTMX marks requests sent by htmx. Responses always vary on HX-Request
// because the same route answers with a fragment or a full page.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "HX-Request")
			isHTMX := strings.EqualFold(r.Header.Get("HX-Request"), "true")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxKey{}, isHTMX)))
		})
	}
}

// IsHTMXRequest reports whether HTMX saw an HX-Request header.
func IsHTMXRequest(ctx context.Context) bool {
	v, _ := ctx.Value(htmxKey{}).(bool)
	return v
}
