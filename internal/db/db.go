package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"safetysos/internal/model"
)

// Relational drivers accepted by Open.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
	DriverSQLite   = "sqlite"
)

// Open returns a connected GORM DB instance for the given driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case DriverMySQL, "mariadb":
		dialector = mysql.Open(dsn)
	case DriverPostgres, "postgresql", DriverSupabase:
		// Supabase's pooler runs in transaction mode and rejects prepared statements.
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// One writer at a time; concurrent writers would hit SQLITE_BUSY.
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gormDB, nil
}

// Models lists every table managed by Migrate, parents first.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.SOSAlert{},
		&model.Notification{},
		&model.EmergencyContact{},
	}
}

// Migrate creates or updates the schema. When reset is set every table is dropped first.
func Migrate(gormDB *gorm.DB, reset bool) error {
	if reset {
		models := Models()
		for i := len(models) - 1; i >= 0; i-- {
			if err := gormDB.Migrator().DropTable(models[i]); err != nil {
				return fmt.Errorf("drop table: %w", err)
			}
		}
	}

	if err := gormDB.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	switch gormDB.Dialector.Name() {
	case "postgres", "sqlite":
		stmt := "CREATE UNIQUE INDEX IF NOT EXISTS idx_sos_alerts_one_active ON sos_alerts (user_id) WHERE status = 'active'"
		if err := gormDB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create active alert index: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func Close(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
