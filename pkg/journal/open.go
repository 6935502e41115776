package journal

import (
	"context"
	"fmt"

	"pictora-hq/relay/pkg/config"
)

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.JournalConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.MemoryCapacity), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Driver, cfg.SQLite.Path, cfg.SQLite.BusyTimeout)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}
