package db

import (
	"fmt"

	"go.uber.org/zap"

	"safetysos/internal/config"
	"safetysos/internal/repository"
)

// OpenStore builds the repositories for the configured STORE_DRIVER.
// The returned close function releases the underlying connection, if any.
func OpenStore(cfg *config.Config, log *zap.Logger) (*repository.Repositories, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore().Repositories(), noop, nil
	case config.StoreFile, "":
		fs, err := repository.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		log.Info("using JSON file store", zap.String("dir", cfg.DataDir))
		return fs.Repositories(), noop, nil
	}

	var dsn string
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		dsn = cfg.MySQLDSN
	case config.StorePostgres, DriverSupabase:
		dsn = cfg.PostgresDSN
		if dsn == "" {
			return nil, nil, fmt.Errorf("POSTGRES_DSN or SUPABASE_DB_URL is required for driver %s", cfg.StoreDriver)
		}
	case config.StoreSQLite:
		dsn = cfg.SQLitePath
	}

	gormDB, err := Open(cfg.StoreDriver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if cfg.ResetDB {
		log.Warn("RESET_DB=true detected, dropping all tables")
	}
	if err := Migrate(gormDB, cfg.ResetDB); err != nil {
		_ = Close(gormDB)
		return nil, nil, err
	}
	log.Info("using relational store", zap.String("driver", cfg.StoreDriver))
	return repository.NewGormRepositories(gormDB), func() error { return Close(gormDB) }, nil
}
