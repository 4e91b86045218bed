package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"MiniShop/internal/apperr"
)

const (
	PingTimeout  = 1 * time.Second
	QueryTimeout = 3 * time.Second

	pgCheckViolation = "23514"
)

type Driver string

const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
)

func ParseDriver(s string) (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(s))) {
	case SQLite:
		return SQLite, nil
	case Postgres, "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unknown db driver %q", s)
	}
}

func (d Driver) sqlName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// Querier is satisfied by both *sql.DB and *sql.Tx, so stores can run
// inside the checkout transaction or directly against the pool.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	*sql.DB
	driver Driver
	dsn    string
}

// Open connects and pings. SQLite is limited to one connection: a
// ":memory:" database is per connection, and a single writer is what
// SQLite allows anyway.
func Open(ctx context.Context, driver Driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver.sqlName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == SQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	out := &DB{DB: db, driver: driver, dsn: dsn}
	if err := out.Ready(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return out, nil
}

func (d *DB) Driver() Driver { return d.driver }

func (d *DB) Ready(ctx context.Context) error {
	return WithTimeout(ctx, PingTimeout, func(ctx context.Context) error {
		return d.PingContext(ctx)
	})
}

// TxOptions returns the options checkout transactions are started with.
func (d *DB) TxOptions() *sql.TxOptions {
	if d.driver == Postgres {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}

func WithTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

// Classify turns a driver error into one of the apperr kinds. Check
// constraint violations are input problems; anything else is a storage
// fault.
func Classify(op string, err error) error {
	if err == nil || apperr.Classified(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return apperr.Validation("%s: violates %s", op, pgErr.ConstraintName)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && isSQLiteCheck(liteErr) {
		return apperr.Validation("%s: check constraint failed", op)
	}

	return apperr.Storage(op, err)
}

func isSQLiteCheck(e *sqlite.Error) bool {
	switch e.Code() {
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(e.Error(), "CHECK constraint failed")
	}
	return false
}
