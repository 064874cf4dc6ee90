package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/saltinventory/minion-inventory/pkg/config"
	"github.com/saltinventory/minion-inventory/pkg/db"
)

// dbMigrateCmd represents the db migrate command
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the database schema",
	Long: `Create and/or upgrade the database schema.

PostgreSQL schemas are managed by the SQL migrations in db/migrations.
SQLite databases are created from the models directly.

Example:
  inventoryctl db migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DatabaseDriver == config.DriverSQLite {
			database, err := db.Connect(db.FromInventoryConfig(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(database) }()
			return migrateSchema(cfg, database)
		}
		return runMigrations(cfg.DatabaseURL)
	},
}

var dbMigrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback database migrations",
	Long: `Rollback database migrations.

This command rolls back the specified number of migrations (default: 1).
It is only available for PostgreSQL.

Example:
  inventoryctl db down      # Rollback 1 migration
  inventoryctl db down 3    # Rollback 3 migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid number of steps %q", args[0])
			}
			steps = n
		}

		dbURL, err := postgresURL()
		if err != nil {
			return err
		}
		return runMigrationsDown(dbURL, steps)
	},
}

var dbMigrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current migration version",
	Long:  `Show the current database migration version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbURL, err := postgresURL()
		if err != nil {
			return err
		}
		return showMigrationStatus(dbURL)
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbMigrateDownCmd)
	dbCmd.AddCommand(dbMigrateStatusCmd)
}

// migrateSchema brings the schema of an open database up to date
func migrateSchema(cfg *config.InventoryConfig, database *gorm.DB) error {
	if cfg.DatabaseDriver == config.DriverSQLite {
		if err := db.AutoMigrate(database); err != nil {
			return err
		}
		fmt.Println("SQLite schema is up to date")
		return nil
	}
	return runMigrations(cfg.DatabaseURL)
}

func postgresURL() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.DatabaseDriver != config.DriverPostgres {
		return "", fmt.Errorf("versioned migrations are only available for %s", config.DriverPostgres)
	}
	return cfg.DatabaseURL, nil
}

func runMigrations(dbURL string) error {
	m, err := createMigrateInstance(dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, _ := m.Version()
	fmt.Printf("Current version: %d (dirty: %v)\n", version, dirty)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migrations to run - database is up to date")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	newVersion, _, _ := m.Version()
	fmt.Printf("Migrated to version: %d\n", newVersion)
	return nil
}

func runMigrationsDown(dbURL string, steps int) error {
	m, err := createMigrateInstance(dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	fmt.Printf("Rolling back %d migration(s)...\n", steps)

	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("Rolled back all migrations")
		return nil
	}
	fmt.Printf("Rolled back to version: %d\n", version)
	return nil
}

func showMigrationStatus(dbURL string) error {
	m, err := createMigrateInstance(dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations have been applied yet")
			return nil
		}
		return err
	}

	fmt.Printf("Current version: %d\n", version)
	if dirty {
		fmt.Println("Warning: Database is in a dirty state")
	}
	return nil
}
