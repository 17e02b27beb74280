package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/pollboard/internal/config"
	"github.com/sakif/pollboard/internal/repository"
	"github.com/sakif/pollboard/internal/repository/postgres"
	"github.com/sakif/pollboard/internal/repository/sqlite"
)

// OpenStore connects to the store selected by cfg.Driver and applies its
// migrations. The caller owns the returned store and must Close it.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("app: creating data directory: %w", err)
			}
		}
		db, err := sqlite.New(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", slog.String("driver", cfg.Driver), slog.String("path", cfg.Path))
		return db, nil

	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DSN, postgres.Options{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", slog.String("driver", cfg.Driver))
		return db, nil
	}

	return nil, fmt.Errorf("app: unknown database driver %q", cfg.Driver)
}
