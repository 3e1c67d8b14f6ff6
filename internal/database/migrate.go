// migrate.go brings the schema up to date at startup using golang-migrate.
//
// The annotation, export and file token tables live in paired up/down SQL
// files under migrations/; applied versions are tracked in the
// schema_migrations table, so restarting against an already-migrated
// database is a no-op.
package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // File source driver
)

// RunMigrations applies every pending migration from migrationsPath. The
// server refuses to start when this fails: annotation saves against a stale
// schema would silently lose regions.
func (db *DB) RunMigrations(migrationsPath string) error {
	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Println("📦 Database: schema already current")
	case err != nil:
		return fmt.Errorf("migration failed: %w", err)
	default:
		version, dirty, _ := m.Version()
		log.Printf("📦 Database: migrated to version %d (dirty: %v)", version, dirty)
	}

	return nil
}
