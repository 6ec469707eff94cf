package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/platform/observability"
	"github.com/uluk20-22520/uluk-site/internal/store"
)

// Origin tells where a loaded document came from.
type Origin string

const (
	OriginStore   Origin = "store"
	OriginDefault Origin = "default"
	OriginEmpty   Origin = "empty"
)

// ErrStoreMissing signals that the store dependency is absent.
var ErrStoreMissing = errors.New("content repository: store is not configured")

// RepositoryDeps bundles the collaborators of a Repository.
type RepositoryDeps struct {
	Store    store.Store
	Defaults DefaultSource
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// Repository owns the persisted content document and an in-memory copy of it.
type Repository struct {
	store    store.Store
	defaults DefaultSource
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu     sync.RWMutex
	cached *Document
	origin Origin
}

// NewRepository constructs the repository. A nil Defaults means EmbeddedDefault.
func NewRepository(deps RepositoryDeps) (*Repository, error) {
	if deps.Store == nil {
		return nil, ErrStoreMissing
	}
	defaults := deps.Defaults
	if defaults == nil {
		defaults = EmbeddedDefault{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		store:    deps.Store,
		defaults: defaults,
		logger:   logger.Named("content"),
		metrics:  deps.Metrics,
	}, nil
}

// Load reads the stored document, falling back to the default source and then
// to the empty document. Failures along the way are logged, never returned.
func (r *Repository) Load(ctx context.Context) (Document, Origin) {
	doc, origin := r.load(ctx, true)
	r.replace(doc, origin)
	return doc.Clone(), origin
}

func (r *Repository) load(ctx context.Context, useStore bool) (Document, Origin) {
	if useStore {
		if doc, ok := r.fromStore(ctx); ok {
			return doc, OriginStore
		}
	}

	raw, err := r.defaults.Default(ctx)
	if err != nil {
		r.logger.Warn("default content unavailable", zap.Error(err))
		return Document{}, OriginEmpty
	}
	doc, err := Decode(raw)
	if err != nil {
		r.logger.Error("default content is not valid JSON", zap.Error(err))
		return Document{}, OriginEmpty
	}
	return doc, OriginDefault
}

func (r *Repository) fromStore(ctx context.Context) (Document, bool) {
	raw, err := r.store.Get(ctx, store.ContentKey)
	if err != nil {
		if !store.IsNotFound(err) {
			r.logger.Error("read stored content", zap.Error(err))
		}
		return Document{}, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Document{}, false
	}
	doc, err := Decode(trimmed)
	if err != nil {
		r.logger.Error("stored content is not valid JSON", zap.Error(err))
		return Document{}, false
	}
	return doc, true
}

// Current returns the cached document, loading it on first use.
func (r *Repository) Current(ctx context.Context) Document {
	r.mu.RLock()
	cached := r.cached
	r.mu.RUnlock()
	if cached != nil {
		return cached.Clone()
	}
	doc, _ := r.Load(ctx)
	return doc
}

// Save persists doc and then makes it the cached document.
func (r *Repository) Save(ctx context.Context, doc Document) error {
	raw, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("content: encode: %w", err)
	}
	if err := r.store.Put(ctx, store.ContentKey, raw); err != nil {
		return fmt.Errorf("content: save: %w", err)
	}
	r.replace(doc.Clone(), OriginStore)
	r.metrics.ContentSaved(ctx, "save")
	return nil
}

// Reset deletes the stored document and reloads from the default source only.
func (r *Repository) Reset(ctx context.Context) (Document, Origin, error) {
	if err := r.store.Delete(ctx, store.ContentKey); err != nil {
		return Document{}, "", fmt.Errorf("content: reset: %w", err)
	}
	doc, origin := r.load(ctx, false)
	r.replace(doc, origin)
	r.metrics.ContentSaved(ctx, "reset")
	return doc.Clone(), origin, nil
}

// Import parses raw and, when it is valid JSON, persists it as the document.
// Invalid JSON returns *ImportError and changes nothing.
func (r *Repository) Import(ctx context.Context, raw []byte) (Document, error) {
	doc, err := Decode(raw)
	if err != nil {
		r.metrics.ContentImported(ctx, false)
		return Document{}, err
	}
	if err := r.Save(ctx, doc); err != nil {
		return Document{}, err
	}
	r.metrics.ContentImported(ctx, true)
	return doc.Clone(), nil
}

// Origin reports where the cached document came from.
func (r *Repository) Origin() Origin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.origin
}

func (r *Repository) replace(doc Document, origin Origin) {
	r.mu.Lock()
	r.cached = &doc
	r.origin = origin
	r.mu.Unlock()
}
