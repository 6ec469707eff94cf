package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uluk20-22520/uluk-site/internal/auth"
)

func newManager(t *testing.T) *auth.Manager {
	t.Helper()
	mgr, err := auth.NewManager(auth.Config{
		HashKey:     []byte("12345678901234567890123456789012"),
		IdleTimeout: time.Minute,
	})
	require.NoError(t, err)
	return mgr
}

func TestSessionSavedBeforeHeaders(t *testing.T) {
	mgr := newManager(t)
	var id string
	handler := Session(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		id = sess.ID()
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))

	require.Equal(t, http.StatusNoContent, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "uluk_admin_ok", cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookies[0])
	loaded, err := mgr.Load(req)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.ID())
}

func TestSessionSavedWhenHandlerWritesNothing(t *testing.T) {
	handler := Session(newManager(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Len(t, rr.Result().Cookies(), 1)
}

func TestCSRF(t *testing.T) {
	handler := CSRF(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(CSRFTokenFromContext(r.Context())))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	token := cookies[0].Value
	assert.Equal(t, token, rr.Body.String())
	assert.Zero(t, cookies[0].MaxAge)

	t.Run("missing token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/content/save", nil)
		req.AddCookie(cookies[0])
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("header token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/content/save", nil)
		req.AddCookie(cookies[0])
		req.Header.Set("X-CSRF-Token", token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("form field passes", func(t *testing.T) {
		form := url.Values{"csrf_token": {token}}
		req := httptest.NewRequest(http.MethodPost, "/admin/content/save", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookies[0])
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("mismatched token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/content/save", nil)
		req.AddCookie(cookies[0])
		req.Header.Set("X-CSRF-Token", token+"x")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

type gateFunc func(*auth.Session) bool

func (f gateFunc) Authenticated(s *auth.Session) bool { return f(s) }

func TestRequireAdmin(t *testing.T) {
	mgr := newManager(t)
	allow := false
	handler := Session(mgr)(HTMX()(RequireAdmin(gateFunc(func(*auth.Session) bool { return allow }), "/admin/login")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/admin/login", rr.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("HX-Request", "true")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "/admin/login", rr.Header().Get("HX-Redirect"))

	allow = true
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNoStoreMiddleware(t *testing.T) {
	handler := NoStore()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestNormalizeBasePath(t *testing.T) {
	assert.Equal(t, "/admin", NormalizeBasePath(""))
	assert.Equal(t, "/panel", NormalizeBasePath("panel/"))
	assert.Equal(t, "/", NormalizeBasePath("/"))
}

func TestAdminMountPrefix(t *testing.T) {
	var prefix string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { prefix = AdminPrefix(r.Context()) })

	AdminMount("/panel/")(capture).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panel", nil))
	assert.Equal(t, "/panel", prefix)

	AdminMount("/")(capture).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, prefix)
}

func TestAssetsSetsETag(t *testing.T) {
	fsys := fstest.MapFS{"site.css": {Data: []byte("body{}")}}
	handler := Assets(fsys, "/static/")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/site.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age")
	assert.Equal(t, "body{}", rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/static/site.css", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotModified, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
