package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE price_quotes (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE order_books (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
`

type testQuote struct {
	Symbol string `msgpack:"symbol"`
	Price  string `msgpack:"price"`
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// One connection so every query sees the same in-memory database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func TestStoreAndGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)

	err := repo.Store(TablePriceQuotes, "BTC", testQuote{Symbol: "BTC", Price: "45000"}, time.Hour)
	require.NoError(t, err)

	var got testQuote
	found, err := repo.GetIfFresh(TablePriceQuotes, "BTC", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "45000", got.Price)
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)

	require.NoError(t, repo.Store(TablePriceQuotes, "ETH", testQuote{Price: "2500"}, time.Hour))
	require.NoError(t, repo.Store(TablePriceQuotes, "ETH", testQuote{Price: "2600"}, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM price_quotes").Scan(&count))
	assert.Equal(t, 1, count)

	var got testQuote
	_, err := repo.Get(TablePriceQuotes, "ETH", &got)
	require.NoError(t, err)
	assert.Equal(t, "2600", got.Price)
}

func TestGetIfFresh_Expired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)

	require.NoError(t, repo.Store(TablePriceQuotes, "SOL", testQuote{Price: "100"}, -time.Hour))

	var got testQuote
	found, err := repo.GetIfFresh(TablePriceQuotes, "SOL", &got)
	require.NoError(t, err)
	assert.False(t, found)

	// Stale data is still reachable through Get
	found, err = repo.Get(TablePriceQuotes, "SOL", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "100", got.Price)
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)

	var got testQuote
	found, err := repo.Get(TableOrderBooks, "NOPE", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)

	err := repo.Store("users; DROP TABLE price_quotes", "x", testQuote{}, time.Hour)
	assert.Error(t, err)

	_, err = repo.GetIfFresh("unknown", "x", &testQuote{})
	assert.Error(t, err)

	_, err = repo.Keys("unknown")
	assert.Error(t, err)
}

func TestKeysAndDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)

	for _, sym := range []string{"XAU", "BTC", "ETH"} {
		require.NoError(t, repo.Store(TablePriceQuotes, sym, testQuote{Symbol: sym}, time.Hour))
	}

	keys, err := repo.Keys(TablePriceQuotes)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH", "XAU"}, keys)

	require.NoError(t, repo.Delete(TablePriceQuotes, "ETH"))
	require.NoError(t, repo.Delete(TablePriceQuotes, "missing"))

	keys, err = repo.Keys(TablePriceQuotes)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "XAU"}, keys)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)

	require.NoError(t, repo.Store(TablePriceQuotes, "OLD", testQuote{}, -time.Hour))
	require.NoError(t, repo.Store(TablePriceQuotes, "NEW", testQuote{}, time.Hour))
	require.NoError(t, repo.Store(TableOrderBooks, "OLD", testQuote{}, -time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TablePriceQuotes])
	assert.Equal(t, int64(1), results[TableOrderBooks])

	keys, err := repo.Keys(TablePriceQuotes)
	require.NoError(t, err)
	assert.Equal(t, []string{"NEW"}, keys)
}
