package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_LedgerSchema(t *testing.T) {
	db := newTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())

	for _, table := range []string{"portfolios", "holdings", "transactions"} {
		var name string
		err := db.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	// Idempotent
	require.NoError(t, db.Migrate())
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch", ProfileStandard)
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction_CommitAndRollback(t *testing.T) {
	db := newTestDB(t, "cache", ProfileCache)
	require.NoError(t, db.Migrate())
	ctx := context.Background()

	err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO price_quotes (symbol, data, expires_at) VALUES ('BTC', x'00', 1)")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO price_quotes (symbol, data, expires_at) VALUES ('ETH', x'00', 1)"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM price_quotes").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTestDB(t, "cache", ProfileCache)

	err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
		panic("bad things")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestWithTransaction_NilDB(t *testing.T) {
	err := WithTransaction(context.Background(), nil, func(tx *sql.Tx) error { return nil })
	assert.Error(t, err)
}

func TestHealthAndStats(t *testing.T) {
	db := newTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, db.WALCheckpoint(""))
	assert.Error(t, db.WALCheckpoint("SIDEWAYS"))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestSnapshotTo(t *testing.T) {
	db := newTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())

	dest := filepath.Join(t.TempDir(), "snap", "ledger.db")
	require.NoError(t, db.SnapshotTo(context.Background(), dest))

	snap, err := New(Config{Path: dest, Name: "snapshot"})
	require.NoError(t, err)
	defer snap.Close()

	var name string
	err = snap.Conn().QueryRow("SELECT name FROM sqlite_master WHERE name='transactions'").Scan(&name)
	assert.NoError(t, err)
}

func TestBuildConnectionString(t *testing.T) {
	ledger := buildConnectionString("/tmp/a.db", ProfileLedger)
	assert.Contains(t, ledger, "synchronous(FULL)")
	assert.Contains(t, ledger, "_txlock=immediate")

	cache := buildConnectionString("file:x?mode=memory", ProfileCache)
	assert.Contains(t, cache, "file:x?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, cache, "synchronous(OFF)")
}
