// Package testutil runs the full HTTP stack against in-memory stores.
package testutil

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/uluk20-22520/uluk-site/internal/auth"
	"github.com/uluk20-22520/uluk-site/internal/content"
	"github.com/uluk20-22520/uluk-site/internal/editor"
	"github.com/uluk20-22520/uluk-site/internal/httpserver"
	"github.com/uluk20-22520/uluk-site/internal/leads"
	"github.com/uluk20-22520/uluk-site/internal/platform/config"
	"github.com/uluk20-22520/uluk-site/internal/store"
)

// Password is accepted by the password authenticator of NewServer.
const Password = "correct horse"

const (
	BasePath       = "/admin"
	CSRFCookieName = "csrf_token"
	CSRFField      = "csrf_token"
	CSRFHeader     = "X-CSRF-Token"
)

// Server is a running test instance of the site.
type Server struct {
	*httptest.Server

	Store   store.Store
	Content *content.Repository
	Leads   *leads.Repository
	Drafts  *editor.Drafts
}

type options struct {
	store    store.Store
	defaults content.DefaultSource
	clock    func() time.Time
	auth     auth.Authenticator
}

// ServerOption customises NewServer.
type ServerOption func(*options)

// WithStore replaces the in-memory store.
func WithStore(s store.Store) ServerOption {
	return func(o *options) { o.store = s }
}

// WithDefaults replaces the bundled default document.
func WithDefaults(d content.DefaultSource) ServerOption {
	return func(o *options) { o.defaults = d }
}

// WithClock fixes the time seen by the lead repository.
func WithClock(clock func() time.Time) ServerOption {
	return func(o *options) { o.clock = clock }
}

// WithAuthenticator overrides the password authenticator.
func WithAuthenticator(a auth.Authenticator) ServerOption {
	return func(o *options) { o.auth = a }
}

// NewServer constructs an httptest server running the site with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	o := options{store: store.NewMemory(), defaults: content.EmbeddedDefault{}}
	for _, opt := range opts {
		opt(&o)
	}

	if o.auth == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		pw, err := auth.NewPasswordAuthenticator(string(hash))
		if err != nil {
			t.Fatalf("password authenticator: %v", err)
		}
		o.auth = pw
	}

	contentRepo, err := content.NewRepository(content.RepositoryDeps{Store: o.store, Defaults: o.defaults})
	if err != nil {
		t.Fatalf("content repository: %v", err)
	}
	leadRepo, err := leads.NewRepository(leads.RepositoryDeps{Store: o.store, Clock: o.clock})
	if err != nil {
		t.Fatalf("lead repository: %v", err)
	}
	sessions, err := auth.NewManager(auth.Config{
		CookieName:  "uluk_admin_ok",
		HashKey:     []byte("0123456789abcdef0123456789abcdef"),
		CookiePath:  BasePath,
		IdleTimeout: 30 * time.Minute,
		Lifetime:    8 * time.Hour,
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	gate, err := auth.NewGate(auth.GateDeps{Authenticator: o.auth})
	if err != nil {
		t.Fatalf("auth gate: %v", err)
	}
	drafts := editor.NewDrafts(contentRepo, time.Hour, nil)

	cfg := config.Config{
		Site:  config.SiteConfig{Locale: "ru-RU", Location: time.UTC},
		Admin: config.AdminConfig{BasePath: BasePath},
		CSRF:  config.CSRFConfig{CookieName: CSRFCookieName, HeaderName: CSRFHeader, FieldName: CSRFField},
	}
	handler, err := httpserver.NewHandler(httpserver.Deps{
		Config:   cfg,
		Content:  contentRepo,
		Leads:    leadRepo,
		Drafts:   drafts,
		Sessions: sessions,
		Gate:     gate,
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return &Server{Server: ts, Store: o.store, Content: contentRepo, Leads: leadRepo, Drafts: drafts}
}

// Browser is a cookie-keeping client that does not follow redirects.
type Browser struct {
	t      testing.TB
	srv    *Server
	Client *http.Client
}

// NewBrowser returns a fresh client for s.
func (s *Server) NewBrowser(t testing.TB) *Browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &Browser{
		t:   t,
		srv: s,
		Client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Get requests path.
func (b *Browser) Get(path string) *http.Response {
	b.t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, b.srv.URL+path, nil)
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	return b.Do(req)
}

// Do sends req with the browser's cookies.
func (b *Browser) Do(req *http.Request) *http.Response {
	b.t.Helper()
	resp, err := b.Client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

// CSRFToken returns the token cookie, fetching the login page first when needed.
func (b *Browser) CSRFToken() string {
	b.t.Helper()
	if token := b.cookie(CSRFCookieName); token != "" {
		return token
	}
	ReadBody(b.t, b.Get(BasePath+"/login"))
	token := b.cookie(CSRFCookieName)
	if token == "" {
		b.t.Fatal("csrf cookie was not issued")
	}
	return token
}

func (b *Browser) cookie(name string) string {
	u, _ := url.Parse(b.srv.URL + BasePath + "/")
	for _, c := range b.Client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// PostForm submits values to path with the CSRF field set.
func (b *Browser) PostForm(path string, values url.Values) *http.Response {
	b.t.Helper()
	if values == nil {
		values = url.Values{}
	}
	if strings.HasPrefix(path, BasePath) {
		values.Set(CSRFField, b.CSRFToken())
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, b.srv.URL+path, strings.NewReader(values.Encode()))
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.Do(req)
}

// PostFile uploads body as the multipart field "file".
func (b *Browser) PostFile(path string, body []byte) *http.Response {
	b.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField(CSRFField, b.CSRFToken())
	part, err := mw.CreateFormFile("file", "content.json")
	if err != nil {
		b.t.Fatalf("multipart: %v", err)
	}
	_, _ = part.Write(body)
	if err := mw.Close(); err != nil {
		b.t.Fatalf("multipart: %v", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, b.srv.URL+path, &buf)
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.Do(req)
}

// Login signs the browser in with Password.
func (b *Browser) Login() {
	b.t.Helper()
	resp := b.PostForm(BasePath+"/login", url.Values{"password": {Password}})
	ReadBody(b.t, resp)
	if resp.StatusCode != http.StatusSeeOther {
		b.t.Fatalf("login: unexpected status %d", resp.StatusCode)
	}
}
