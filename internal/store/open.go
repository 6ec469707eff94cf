package store

import (
	"context"
	"fmt"

	"github.com/uluk20-22520/uluk-site/internal/platform/config"
	pfirestore "github.com/uluk20-22520/uluk-site/internal/platform/firestore"
)

// Open builds the backend selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Store.SQLitePath)
	case config.DriverFirestore:
		return NewFirestore(pfirestore.NewProvider(cfg.Firestore), cfg.Store.Collection), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}
