package cli

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/content"
	"github.com/uluk20-22520/uluk-site/internal/leads"
	"github.com/uluk20-22520/uluk-site/internal/platform/config"
	"github.com/uluk20-22520/uluk-site/internal/platform/observability"
	"github.com/uluk20-22520/uluk-site/internal/platform/secrets"
	"github.com/uluk20-22520/uluk-site/internal/store"
)

const instrumentationName = "github.com/uluk20-22520/uluk-site"

// app holds the collaborators shared by commands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
	store   store.Store
	content *content.Repository
	leads   *leads.Repository

	closers []func() error
}

// loadConfig resolves configuration through the Secret Manager fetcher.
func loadConfig(ctx context.Context, opts *globalOptions, logger *zap.Logger, extra ...config.Option) (config.Config, error) {
	fetcher, err := secrets.NewFetcher(ctx, secrets.WithLogger(logger.Named("secrets")), secrets.WithProject(opts.secretsProject))
	if err != nil {
		return config.Config{}, fmt.Errorf("secret fetcher: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	loadOpts := append([]config.Option{
		config.WithConfigFile(opts.configFile),
		config.WithEnvFile(opts.envFile),
		config.WithSecretResolver(fetcher),
	}, extra...)
	cfg, err := config.Load(ctx, loadOpts...)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			logger.Error("invalid configuration", zap.Strings("fields", verr.Fields()))
		}
		return config.Config{}, err
	}
	return cfg, nil
}

// newApp loads config, opens the store and builds both repositories.
func newApp(ctx context.Context, opts *globalOptions, extra ...config.Option) (*app, error) {
	bootstrap, err := observability.NewLogger(observability.LoggerOptions{})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	cfg, err := loadConfig(ctx, opts, bootstrap, extra...)
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(observability.LoggerOptions{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logger = logger.Named("site")

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(otel.GetMeterProvider().Meter(instrumentationName), logger),
	}
	a.closers = append(a.closers, func() error { _ = logger.Sync(); return nil })

	s, err := store.Open(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = s
	a.closers = append(a.closers, s.Close)

	a.content, err = content.NewRepository(content.RepositoryDeps{
		Store:    s,
		Defaults: content.NewDefaultSource(cfg.Site.DefaultContentPath),
		Logger:   logger,
		Metrics:  a.metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// withLeads builds the lead repository with notifier.
func (a *app) withLeads(notifier leads.Notifier) error {
	repo, err := leads.NewRepository(leads.RepositoryDeps{
		Store:          a.store,
		Notifier:       notifier,
		Logger:         a.logger,
		Metrics:        a.metrics,
		MaxFieldLength: a.cfg.Leads.MaxFieldLength,
	})
	if err != nil {
		return err
	}
	a.leads = repo
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close error", zap.Error(err))
		}
	}
	a.closers = nil
}
