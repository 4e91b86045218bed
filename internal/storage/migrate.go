package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies the embedded schema for the connection's driver.
func (d *DB) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(d.driver))
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	// The migrate drivers close the *sql.DB they are given. SQLite must
	// reuse the live handle (":memory:" lives on it), so migrate is never
	// closed there; Postgres gets its own short-lived pool.
	var (
		driver database.Driver
		own    *sql.DB
	)
	switch d.driver {
	case SQLite:
		driver, err = migratesqlite.WithInstance(d.DB, &migratesqlite.Config{})
	case Postgres:
		own, err = sql.Open(d.driver.sqlName(), d.dsn)
		if err == nil {
			driver, err = migratepgx.WithInstance(own, &migratepgx.Config{})
		}
	default:
		err = fmt.Errorf("unknown db driver %q", d.driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(d.driver), driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if own != nil {
		defer func() { _, _ = m.Close() }()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}
