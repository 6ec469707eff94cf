package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"cloud.google.com/go/pubsub"
	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/auth"
	"github.com/uluk20-22520/uluk-site/internal/editor"
	"github.com/uluk20-22520/uluk-site/internal/httpserver"
	custommw "github.com/uluk20-22520/uluk-site/internal/httpserver/middleware"
	"github.com/uluk20-22520/uluk-site/internal/leads"
	"github.com/uluk20-22520/uluk-site/internal/render"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the public site, JSON API and admin panel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *globalOptions) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	notifier, err := a.leadNotifier(ctx)
	if err != nil {
		return err
	}
	if err := a.withLeads(notifier); err != nil {
		return err
	}

	authenticator, err := a.authenticator(ctx)
	if err != nil {
		return err
	}
	sessions, err := a.sessionManager()
	if err != nil {
		return err
	}
	gate, err := auth.NewGate(auth.GateDeps{Authenticator: authenticator, Metrics: a.metrics, Logger: logger})
	if err != nil {
		return err
	}

	drafts := editor.NewDrafts(a.content, a.cfg.Session.IdleTimeout, nil)
	go drafts.Run(ctx, 0)

	srv, err := httpserver.New(httpserver.Deps{
		Config:   a.cfg,
		Logger:   logger,
		Metrics:  a.metrics,
		Content:  a.content,
		Leads:    a.leads,
		Renderer: render.New(),
		Drafts:   drafts,
		Sessions: sessions,
		Gate:     gate,
		Firebase: a.cfg.Admin.FirebaseProjectID != "",
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("store", a.cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// leadNotifier publishes to Pub/Sub when a topic is configured.
func (a *app) leadNotifier(ctx context.Context) (leads.Notifier, error) {
	if a.cfg.Notify.Topic == "" {
		return leads.NopNotifier{}, nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.Notify.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	notifier, err := leads.NewPubSubNotifier(client.Topic(a.cfg.Notify.Topic))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	a.closers = append(a.closers, client.Close, func() error { notifier.Stop(); return nil })
	a.logger.Info("lead notifications enabled", zap.String("topic", a.cfg.Notify.Topic))
	return notifier, nil
}

func (a *app) authenticator(ctx context.Context) (auth.Authenticator, error) {
	if project := a.cfg.Admin.FirebaseProjectID; project != "" {
		verifier, err := auth.NewFirebaseVerifier(ctx, project)
		if err != nil {
			return nil, err
		}
		return auth.NewFirebaseAuthenticator(verifier), nil
	}
	return auth.NewPasswordAuthenticator(a.cfg.Admin.PasswordHash)
}

// sessionManager uses the configured keys. Missing keys are generated per
// process, which logs everyone out on restart.
func (a *app) sessionManager() (*auth.Manager, error) {
	cfg := a.cfg.Session
	hashKey := []byte(cfg.HashKey)
	if len(hashKey) == 0 {
		a.logger.Warn("session hash key not set; using an ephemeral key")
		hashKey = securecookie.GenerateRandomKey(32)
	}
	var blockKey []byte
	if cfg.BlockKey != "" {
		blockKey = []byte(cfg.BlockKey)
	}
	return auth.NewManager(auth.Config{
		CookieName:     cfg.CookieName,
		HashKey:        hashKey,
		BlockKey:       blockKey,
		CookiePath:     custommw.NormalizeBasePath(strings.TrimSpace(a.cfg.Admin.BasePath)),
		CookieSecure:   cfg.Secure,
		CookieSameSite: http.SameSiteLaxMode,
		IdleTimeout:    cfg.IdleTimeout,
		Lifetime:       cfg.Lifetime,
	})
}
