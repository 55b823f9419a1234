package testing

import (
	"testing"
	"time"

	"github.com/aristath/bourse/internal/database"
)

// SeedPortfolio inserts a portfolio row directly, bypassing the portfolio store.
func SeedPortfolio(t *testing.T, db *database.DB, id, userID, cash string) {
	t.Helper()

	now := time.Now().Unix()
	_, err := db.Conn().Exec(
		`INSERT INTO portfolios (id, user_id, available_cash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, cash, now, now,
	)
	if err != nil {
		t.Fatalf("Failed to seed portfolio %s: %v", id, err)
	}
}

// SeedHolding inserts a holding row for an existing portfolio.
func SeedHolding(t *testing.T, db *database.DB, portfolioID, symbol, amount, avgPrice string) {
	t.Helper()

	_, err := db.Conn().Exec(
		`INSERT INTO holdings (portfolio_id, symbol, amount, average_purchase_price, current_price, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		portfolioID, symbol, amount, avgPrice, avgPrice, time.Now().Unix(),
	)
	if err != nil {
		t.Fatalf("Failed to seed holding %s/%s: %v", portfolioID, symbol, err)
	}
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, db *database.DB, table string) int {
	t.Helper()

	var n int
	if err := db.Conn().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
