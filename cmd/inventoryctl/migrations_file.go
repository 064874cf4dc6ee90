//go:build !embed_migrations

package main

import (
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const defaultMigrationsPath = "db/migrations"

func createMigrateInstance(dbURL string) (*migrate.Migrate, error) {
	path := defaultMigrationsPath
	if p := os.Getenv("INVENTORY_MIGRATIONS_PATH"); p != "" {
		path = p
	}
	fmt.Printf("Running migrations from file://%s\n", path)
	return migrate.New("file://"+path, dbURL)
}
