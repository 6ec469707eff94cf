package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/platform/observability"
	"github.com/uluk20-22520/uluk-site/internal/store"
)

const defaultMaxFieldLength = 2000

var (
	// ErrStoreMissing signals that the store dependency is absent.
	ErrStoreMissing = errors.New("lead repository: store is not configured")
	// ErrCorrupt is returned when the stored list cannot be decoded. Writes are
	// refused so the stored bytes are never overwritten.
	ErrCorrupt = errors.New("lead repository: stored leads are not valid JSON")
)

// RepositoryDeps bundles the collaborators of a Repository.
type RepositoryDeps struct {
	Store          store.Store
	Notifier       Notifier
	Clock          func() time.Time
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	MaxFieldLength int
}

// Repository appends, lists and removes leads under the fixed store key.
type Repository struct {
	store    store.Store
	notifier Notifier
	clock    func() time.Time
	logger   *zap.Logger
	metrics  *observability.Metrics
	norm     normalizer

	mu     sync.Mutex
	lastID int64
}

// NewRepository constructs the repository.
func NewRepository(deps RepositoryDeps) (*Repository, error) {
	if deps.Store == nil {
		return nil, ErrStoreMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := deps.MaxFieldLength
	if limit <= 0 {
		limit = defaultMaxFieldLength
	}
	return &Repository{
		store:    deps.Store,
		notifier: notifier,
		clock:    clock,
		logger:   logger.Named("leads"),
		metrics:  deps.Metrics,
		norm:     newNormalizer(limit),
	}, nil
}

// Append normalizes f, assigns an id and a date, and persists the new lead.
// source labels the capture channel in metrics ("form" or "api").
func (r *Repository) Append(ctx context.Context, f Fields, source string) (Lead, error) {
	fields := r.norm.fields(f)

	r.mu.Lock()
	list, err := r.read(ctx)
	if err != nil {
		r.mu.Unlock()
		return Lead{}, err
	}

	now := r.clock().UTC()
	lead := Lead{
		Name:    fields.Name,
		Phone:   fields.Phone,
		Service: fields.Service,
		Channel: fields.Channel,
		Comment: fields.Comment,
		ID:      r.nextID(now, list),
		Date:    now.Format(DateLayout),
	}
	list = append(list, lead)
	if err := r.write(ctx, list); err != nil {
		r.mu.Unlock()
		return Lead{}, err
	}
	r.mu.Unlock()

	r.metrics.LeadCreated(ctx, source)
	if err := r.notifier.Notify(ctx, lead); err != nil {
		r.logger.Warn("lead notification failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
	}
	return lead, nil
}

// nextID returns the creation millisecond, bumped past every id already seen.
func (r *Repository) nextID(now time.Time, list []Lead) int64 {
	for _, l := range list {
		r.lastID = max(r.lastID, l.ID)
	}
	id := now.UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return id
}

// List returns leads in append order.
func (r *Repository) List(ctx context.Context) ([]Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(ctx)
}

// Remove deletes the lead with id. Removing an unknown id is a no-op.
func (r *Repository) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.read(ctx)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(slices.Clone(list), func(l Lead) bool { return l.ID == id })
	if len(kept) == len(list) {
		return nil
	}
	return r.write(ctx, kept)
}

// Clear deletes every lead.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Delete(ctx, store.LeadsKey); err != nil {
		return fmt.Errorf("leads: clear: %w", err)
	}
	return nil
}

// ExportAll returns the list as 2-space indented JSON.
func (r *Repository) ExportAll(ctx context.Context) ([]byte, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return Export(list)
}

// Export encodes list as 2-space indented JSON; a nil list encodes as [].
func Export(list []Lead) ([]byte, error) {
	if list == nil {
		list = []Lead{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return nil, fmt.Errorf("leads: encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *Repository) read(ctx context.Context) ([]Lead, error) {
	raw, err := r.store.Get(ctx, store.LeadsKey)
	if store.IsNotFound(err) {
		return []Lead{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leads: read: %w", err)
	}
	var list []Lead
	if err := json.Unmarshal(raw, &list); err != nil {
		r.logger.Error("stored leads are not valid JSON", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if list == nil {
		list = []Lead{}
	}
	return list, nil
}

func (r *Repository) write(ctx context.Context, list []Lead) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("leads: encode: %w", err)
	}
	if err := r.store.Put(ctx, store.LeadsKey, raw); err != nil {
		return fmt.Errorf("leads: write: %w", err)
	}
	return nil
}
