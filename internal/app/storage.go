package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kodacci/o-monitor-rest/internal/config"
	"github.com/kodacci/o-monitor-rest/internal/db"
	"github.com/kodacci/o-monitor-rest/internal/db/migrate"
	statsrepo "github.com/kodacci/o-monitor-rest/internal/stats/repository"
	userrepo "github.com/kodacci/o-monitor-rest/internal/user/repository"
)

// Storage bundles the repositories of the configured backend.
type Storage struct {
	DB    *sql.DB
	Users userrepo.Repository
	Stats statsrepo.Repository
}

// OpenStorage connects to the configured database and brings its schema up to date:
// Postgres through the embedded migrations, SQLite through gorm auto-migration.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		if err := migrate.Run(cfg.DatabaseURL, migrate.Up, 0); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		logger.Info("storage ready", "driver", cfg.DatabaseDriver)
		return &Storage{
			DB:    sqlDB,
			Users: userrepo.NewPostgresRepository(sqlDB),
			Stats: statsrepo.NewPostgresRepository(sqlDB, cfg.StatsReadLimit),
		}, nil

	case config.DriverSQLite:
		gdb, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		users := userrepo.NewGormRepository(gdb)
		stats := statsrepo.NewGormRepository(gdb, cfg.StatsReadLimit)
		if err := errors.Join(users.AutoMigrate(), stats.AutoMigrate()); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("sqlite: migrate: %w", err)
		}
		logger.Info("storage ready", "driver", cfg.DatabaseDriver, "path", cfg.SQLitePath)
		return &Storage{DB: sqlDB, Users: users, Stats: stats}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
}

// Close closes the database pool.
func (s *Storage) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
