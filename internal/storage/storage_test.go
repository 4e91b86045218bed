package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MiniShop/internal/apperr"
	"MiniShop/internal/storage"
)

func openMemory(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.Open(context.Background(), storage.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestParseDriver(t *testing.T) {
	d, err := storage.ParseDriver(" SQLite ")
	require.NoError(t, err)
	assert.Equal(t, storage.SQLite, d)

	d, err = storage.ParseDriver("pgx")
	require.NoError(t, err)
	assert.Equal(t, storage.Postgres, d)

	_, err = storage.ParseDriver("mysql")
	assert.Error(t, err)
}

func TestMigrate_CreatesSchemaAndIsRepeatable(t *testing.T) {
	db := openMemory(t)

	for _, table := range []string{"products", "orders", "order_lines"} {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equalf(t, 1, n, "table %s", table)
	}

	require.NoError(t, db.Migrate())
}

func TestTxOptions(t *testing.T) {
	db := openMemory(t)
	assert.Nil(t, db.TxOptions())
	assert.Equal(t, storage.SQLite, db.Driver())
	assert.NoError(t, db.Ready(context.Background()))
}

func TestClassify(t *testing.T) {
	db := openMemory(t)

	_, err := db.Exec(`INSERT INTO products (name, price) VALUES ($1, $2)`, "Bad", -1)
	require.Error(t, err)

	got := storage.Classify("insert product", err)
	assert.ErrorIs(t, got, apperr.ErrValidation)

	got = storage.Classify("query", errors.New("connection reset"))
	assert.ErrorIs(t, got, apperr.ErrStorage)

	nf := apperr.NotFound("product", 1)
	assert.Equal(t, nf, storage.Classify("get", nf))
	assert.NoError(t, storage.Classify("noop", nil))
}
