// Package factory builds the configured vector store backend.
package factory

import (
	"context"
	"fmt"

	"github.com/pkvault/pkvault/internal/config"
	"github.com/pkvault/pkvault/internal/vectorstore"
	"github.com/pkvault/pkvault/internal/vectorstore/dual"
	"github.com/pkvault/pkvault/internal/vectorstore/postgres"
	"github.com/pkvault/pkvault/internal/vectorstore/sqlite"
)

// Open returns the Store selected by cfg.StorageBackend: "sqlite"
// (default), "postgres", or "dual" (SQLite primary with a Postgres
// mirror).
func Open(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.StorageBackend {
	case "", "sqlite":
		return sqlite.Open(cfg.DataPath)

	case "postgres":
		return postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)

	case "dual":
		primary, err := sqlite.Open(cfg.DataPath)
		if err != nil {
			return nil, err
		}
		mirror, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
		if err != nil {
			_ = primary.Close()
			return nil, err
		}
		return dual.New(primary, mirror), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q (expected sqlite, postgres, or dual)", cfg.StorageBackend)
	}
}
