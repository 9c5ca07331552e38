// Package storageutils builds the configured turn store.
package storageutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
	"github.com/papercomputeco/recall/pkg/storage/postgres"
	"github.com/papercomputeco/recall/pkg/storage/sqlite"
)

type NewStoreOpts struct {
	// Driver is "postgres", "sqlite" or "memory".
	Driver      string
	PostgresDSN string

	// SQLitePath defaults to ":memory:".
	SQLitePath string

	// Table overrides the default chat_history table.
	Table   string
	Variant storage.Variant
	Logger  *slog.Logger
}

// NewStore opens the configured store. It does not create the schema; call
// EnsureSchema before first use.
func NewStore(ctx context.Context, o *NewStoreOpts) (storage.Driver, error) {
	switch o.Driver {
	case "postgres":
		opts := []postgres.Option{postgres.WithVariant(o.Variant), postgres.WithLogger(o.Logger)}
		if o.Table != "" {
			opts = append(opts, postgres.WithTable(o.Table))
		}
		return postgres.NewDriver(ctx, o.PostgresDSN, opts...)

	case "sqlite":
		path := o.SQLitePath
		if path == "" {
			path = ":memory:"
		}
		opts := []sqlite.Option{sqlite.WithVariant(o.Variant), sqlite.WithLogger(o.Logger)}
		if o.Table != "" {
			opts = append(opts, sqlite.WithTable(o.Table))
		}
		return sqlite.NewDriver(path, opts...)

	case "memory":
		return inmemory.NewDriver(o.Variant), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", o.Driver)
	}
}
