package securestore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countItems(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM secure_items`).Scan(&n))
	return n
}

func TestInitDatabase_CreatesSchema(t *testing.T) {
	db := openTestDB(t)

	require.True(t, tableExists(t, db, "goose_db_version"))
	require.True(t, tableExists(t, db, "secure_items"))
	require.True(t, tableExists(t, db, "store_meta"))
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, RunMigrations(context.Background(), db))
	require.True(t, tableExists(t, db, "secure_items"))
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)

	err := withTx(context.Background(), db, func(ctx context.Context, tx dbtx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO secure_items(key, value) VALUES ('a', x'01')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countItems(t, db))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := withTx(context.Background(), db, func(ctx context.Context, tx dbtx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO secure_items(key, value) VALUES ('a', x'01')`)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, countItems(t, db))
}

func TestWithTx_RollsBackAndRepanics(t *testing.T) {
	db := openTestDB(t)

	require.PanicsWithValue(t, "kaboom", func() {
		_ = withTx(context.Background(), db, func(ctx context.Context, tx dbtx) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO secure_items(key, value) VALUES ('a', x'01')`)
			require.NoError(t, err)
			panic("kaboom")
		})
	})
	require.Equal(t, 0, countItems(t, db))
}
