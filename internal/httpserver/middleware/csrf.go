package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
)

type csrfKey struct{}

// CSRFConfig names the double-submit cookie and where forms echo it back.
type CSRFConfig struct {
	CookieName string // default uluk_csrf
	CookiePath string // default /
	HeaderName string // default X-CSRF-Token
	FieldName  string // default csrf_token
	Secure     bool
}

// CSRF issues a session-scoped token cookie and rejects unsafe requests that do
// not echo it in the header or the form field.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	cfg.CookieName = orDefault(cfg.CookieName, "uluk_csrf")
	cfg.CookiePath = orDefault(cfg.CookiePath, "/")
	cfg.HeaderName = orDefault(cfg.HeaderName, "X-CSRF-Token")
	cfg.FieldName = orDefault(cfg.FieldName, "csrf_token")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := cfg.token(w, r)
			if err != nil {
				http.Error(w, "csrf token error", http.StatusInternalServerError)
				return
			}
			if !safeMethod(r.Method) && !cfg.echoed(r, token) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
		})
	}
}

// CSRFTokenFromContext returns the token to embed in forms.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey{}).(string)
	return token
}

func (cfg CSRFConfig) token(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	raw := securecookie.GenerateRandomKey(32)
	if raw == nil {
		return "", errors.New("csrf: no randomness")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     cfg.CookiePath,
		HttpOnly: true,
		Secure:   cfg.Secure || r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

func (cfg CSRFConfig) echoed(r *http.Request, token string) bool {
	got := r.Header.Get(cfg.HeaderName)
	if got == "" {
		got = r.PostFormValue(cfg.FieldName)
	}
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
