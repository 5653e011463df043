// Package migrations owns the Postgres schema behind the objects and
// kv_entries stores.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var MigrationFiles embed.FS

// State is the schema version recorded in the database.
type State struct {
	Version uint
	Dirty   bool
	// Fresh is set when no migration ever ran.
	Fresh bool
}

// Schema applies the embedded migrations to one database.
type Schema struct {
	m *migrate.Migrate
}

// Open binds the embedded migrations to a Postgres connection.
func Open(db *sql.DB) (*Schema, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	return withDriver("postgres", driver)
}

func withDriver(name string, driver database.Driver) (*Schema, error) {
	src, err := iofs.New(MigrationFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return &Schema{m: m}, nil
}

func (s *Schema) State() (State, error) {
	version, dirty, err := s.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return State{Fresh: true}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read schema version: %w", err)
	}
	return State{Version: version, Dirty: dirty}, nil
}

// Up clears a dirty marker left by an interrupted run and applies every
// pending migration. The statements use IF NOT EXISTS, so replaying the
// interrupted one is safe.
func (s *Schema) Up() (State, error) {
	st, err := s.State()
	if err != nil {
		return State{}, err
	}
	if st.Dirty {
		slog.Warn("Schema left dirty by an interrupted migration, forcing", "version", st.Version)
		if err := s.m.Force(int(st.Version)); err != nil {
			return State{}, fmt.Errorf("force schema version %d: %w", st.Version, err)
		}
	}

	if err := s.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return State{}, fmt.Errorf("apply migrations: %w", err)
	}
	return s.State()
}

// RunMigrations brings the schema up to date, or only reports its version
// when autoMigrate is off.
func RunMigrations(db *sql.DB, autoMigrate bool) error {
	schema, err := Open(db)
	if err != nil {
		return err
	}
	return schema.run(autoMigrate)
}

func (s *Schema) run(autoMigrate bool) error {
	before, err := s.State()
	if err != nil {
		return err
	}
	if !autoMigrate {
		slog.Info("Auto-migration disabled", "version", before.Version, "dirty", before.Dirty, "fresh", before.Fresh)
		return nil
	}

	after, err := s.Up()
	if err != nil {
		return err
	}
	slog.Info("Schema up to date", "from_version", before.Version, "to_version", after.Version)
	return nil
}
