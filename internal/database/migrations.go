package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrator applies the embedded schema migrations
type Migrator struct {
	db *sql.DB
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

func (m *Migrator) instance() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(m.db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	return migrate.NewWithInstance("iofs", source, "sqlite3", driver)
}

// RunMigrations applies all pending migrations
func (m *Migrator) RunMigrations() error {
	instance, err := m.instance()
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Rollback reverts the most recently applied migration
func (m *Migrator) Rollback() error {
	instance, err := m.instance()
	if err != nil {
		return err
	}

	if err := instance.Steps(-1); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// GetMigrationStatus prints the current schema version
func (m *Migrator) GetMigrationStatus() error {
	instance, err := m.instance()
	if err != nil {
		return err
	}

	version, dirty, err := instance.Version()
	if err == migrate.ErrNilVersion {
		fmt.Println("Migration status: no migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	fmt.Printf("Migration status: version %d (dirty: %v)\n", version, dirty)
	return nil
}
