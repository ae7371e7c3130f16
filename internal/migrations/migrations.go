package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/socialzwater/backend/internal/logger"
)

//go:embed sql/*.sql
var migrationFS embed.FS

func newMigrator(db *sql.DB, dbName string) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dbName, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// Run executes all pending migrations
func Run(db *sql.DB, dbName string) error {
	logger.Info().Msg("Running database migrations")

	m, err := newMigrator(db, dbName)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info().Msg("No migrations to run")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		logger.Warn().Uint("version", version).Msg("Migration version is dirty")
	default:
		logger.Info().Uint("version", version).Msg("Migrations complete")
	}

	return nil
}

// Rollback rolls back the last migration
func Rollback(db *sql.DB, dbName string) error {
	logger.Info().Msg("Rolling back last migration")

	m, err := newMigrator(db, dbName)
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback failed: %w", err)
	}

	logger.Info().Msg("Rollback complete")
	return nil
}

// Status returns current migration version
func Status(db *sql.DB, dbName string) (uint, bool, error) {
	m, err := newMigrator(db, dbName)
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}
