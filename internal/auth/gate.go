package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/platform/observability"
)

// Gate decides whether a session may use the admin panel.
type Gate struct {
	auth    Authenticator
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// GateDeps bundles the collaborators of a Gate.
type GateDeps struct {
	Authenticator Authenticator
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Now           func() time.Time
}

// NewGate constructs the gate.
func NewGate(deps GateDeps) (*Gate, error) {
	if deps.Authenticator == nil {
		return nil, errors.New("auth: authenticator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Gate{auth: deps.Authenticator, metrics: deps.Metrics, logger: logger.Named("auth"), now: now}, nil
}

// Authenticated reports whether sess carries the admin flag.
func (g *Gate) Authenticated(sess *Session) bool {
	return sess != nil && !sess.Destroyed() && sess.Authenticated()
}

// Login checks credential and marks sess authenticated under a fresh id.
// A rejected credential leaves sess unchanged and returns ErrInvalidCredentials.
func (g *Gate) Login(ctx context.Context, sess *Session, credential string) error {
	actor, err := g.auth.Authenticate(ctx, credential)
	if err != nil {
		g.metrics.AdminLogin(ctx, false)
		g.logger.Warn("admin login rejected", zap.Error(err))
		if errors.Is(err, ErrInvalidCredentials) {
			return ErrInvalidCredentials
		}
		return err
	}
	sess.Renew(g.now())
	sess.setAuthenticated(actor)
	g.metrics.AdminLogin(ctx, true)
	g.logger.Info("admin logged in", zap.String("actor", observability.SanitizeActor(actor)))
	return nil
}

// Logout destroys sess.
func (g *Gate) Logout(sess *Session) {
	if sess != nil {
		sess.Destroy()
	}
}
