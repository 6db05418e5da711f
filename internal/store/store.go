package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/config"
	"github.com/wonny/aegis-rs/pkg/database"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// Results backends
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open creates the configured results store, db is only needed for postgres
func Open(ctx context.Context, cfg *config.Config, db *database.DB, log *logger.Logger) (contracts.ResultsStore, error) {
	loc := cfg.Archive.Location()

	switch cfg.Results.Backend {
	case "", BackendCSV:
		return NewCSVStore(cfg.Results.Dir, loc)
	case BackendSQLite:
		path := cfg.Results.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.Results.Dir, "results.db")
		}
		return NewSQLiteStore(path, loc, log)
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres results store requires DATABASE_URL")
		}
		if err := db.Migrate(ctx, PostgresSchema...); err != nil {
			return nil, fmt.Errorf("migrate results schema: %w", err)
		}
		return NewPostgresStore(db.Pool, loc, log), nil
	default:
		return nil, fmt.Errorf("unknown results backend %q", cfg.Results.Backend)
	}
}
