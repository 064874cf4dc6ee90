package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saltinventory/minion-inventory/pkg/config"
	"github.com/saltinventory/minion-inventory/pkg/model"
)

// Config holds database connection configuration
type Config struct {
	// Driver is config.DriverPostgres (default) or config.DriverSQLite
	Driver string
	// URL is a PostgreSQL connection URL or a SQLite file path
	URL string
	// Debug enables SQL statement logging
	Debug bool
}

// FromInventoryConfig derives the connection settings from the service configuration
func FromInventoryConfig(cfg *config.InventoryConfig) Config {
	return Config{
		Driver: cfg.DatabaseDriver,
		URL:    cfg.DatabaseURL,
		Debug:  cfg.LogLevel == "debug",
	}
}

// Connect establishes a database connection.
// Transactions are only opened where reconciliation asks for them.
func Connect(cfg Config) (*gorm.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: database URL is required (set DATABASE_URL)", config.ErrInvalidConfig)
	}

	// Default to silent logging unless debug is requested
	logMode := logger.Silent
	if cfg.Debug {
		logMode = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
	}

	switch cfg.Driver {
	case "", config.DriverPostgres:
		db, err := gorm.Open(
			postgres.New(postgres.Config{
				DSN:                  cfg.URL,
				PreferSimpleProtocol: true, // disables implicit prepared statement usage
			}),
			gormConfig,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, nil

	case config.DriverSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.URL), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database %s: %w", cfg.URL, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite allows a single writer; savepoints must stay on one connection.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec(`PRAGMA foreign_keys = ON`).Error; err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

// AutoMigrate creates or updates the inventory tables from the GORM models.
// PostgreSQL deployments use the SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
