package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/auth"
	"github.com/uluk20-22520/uluk-site/internal/platform/requestctx"
)

// Gate reports whether a session is logged in.
type Gate interface {
	Authenticated(*auth.Session) bool
}

// RequireAdmin sends sessions without the admin flag to loginPath. htmx
// requests get 401 with HX-Redirect instead of a redirect.
func RequireAdmin(gate Gate, loginPath string) func(http.Handler) http.Handler {
	if gate == nil {
		panic("auth gate is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok || !gate.Authenticated(sess) {
				if IsHTMXRequest(r.Context()) {
					w.Header().Set("HX-Redirect", loginPath)
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			logger := requestctx.Logger(r.Context()).With(zap.String("actor", sess.Actor()))
			next.ServeHTTP(w, r.WithContext(requestctx.WithLogger(r.Context(), logger)))
		})
	}
}
