// Package auth gates the admin panel behind a credential check and a signed
// browser-session cookie.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
)

// ErrExpired is returned by Load when the cookie outlived its idle or absolute limit.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig is returned by NewManager for unusable keys.
var ErrInvalidConfig = errors.New("session: invalid config")

// Config controls the admin cookie.
type Config struct {
	CookieName     string // default uluk_admin_ok
	HashKey        []byte
	BlockKey       []byte // optional; 16, 24 or 32 bytes enables encryption
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration // default 30m
	Lifetime    time.Duration // default 12h
	Now         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.CookieName == "" {
		c.CookieName = "uluk_admin_ok"
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.CookieSameSite == 0 || c.CookieSameSite == http.SameSiteDefaultMode {
		c.CookieSameSite = http.SameSiteLaxMode
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.Lifetime <= 0 {
		c.Lifetime = 12 * time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// payload is what the cookie carries.
type payload struct {
	ID         string    `json:"id"`
	Issued     time.Time `json:"iat"`
	LastActive time.Time `json:"seen"`
	Admin      bool      `json:"admin"`
	Actor      string    `json:"actor,omitempty"`
}

// Session is the admin state for one request.
type Session struct {
	p         payload
	destroyed bool
}

// ID identifies the browser session. It changes on login.
func (s *Session) ID() string { return s.p.ID }

// Authenticated reports the admin flag.
func (s *Session) Authenticated() bool { return s.p.Admin }

// Actor names who logged in.
func (s *Session) Actor() string { return s.p.Actor }

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool { return s.destroyed }

// Destroy clears the cookie when the response is written.
func (s *Session) Destroy() { s.destroyed = true }

// Renew issues a fresh id and restarts the absolute lifetime.
func (s *Session) Renew(now time.Time) {
	s.p.ID = newID(now)
	s.p.Issued = now.UTC()
}

func (s *Session) setAuthenticated(actor string) {
	s.p.Admin = true
	s.p.Actor = actor
}

// Manager encodes sessions into signed cookies. The cookie carries neither
// Expires nor Max-Age, so it ends with the browser session; idle and absolute
// limits are checked against the payload.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
}

// NewManager validates the keys and builds the codec.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0:
		cfg.BlockKey = nil
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(0)
	return &Manager{cfg: cfg, codec: codec}, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string { return m.cfg.CookieName }

// New starts an anonymous session.
func (m *Manager) New() *Session {
	now := m.cfg.Now().UTC()
	return &Session{p: payload{ID: newID(now), Issued: now, LastActive: now}}
}

// Load decodes the request cookie. A missing or undecodable cookie yields a
// new anonymous session; an expired one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}
	var p payload
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &p); err != nil || p.ID == "" {
		return m.New(), nil
	}
	now := m.cfg.Now().UTC()
	if now.Sub(p.Issued) > m.cfg.Lifetime || now.Sub(p.LastActive) > m.cfg.IdleTimeout {
		return nil, ErrExpired
	}
	return &Session{p: p}, nil
}

// Save writes sess back as a cookie, or clears the cookie when sess was destroyed.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Path:     m.cfg.CookiePath,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
	if sess.destroyed {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		http.SetCookie(w, cookie)
		return nil
	}
	sess.p.LastActive = m.cfg.Now().UTC()
	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.p)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	cookie.Value = encoded
	http.SetCookie(w, cookie)
	return nil
}

func newID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}
