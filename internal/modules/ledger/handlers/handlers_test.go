package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/modules/ledger"
	testdb "github.com/aristath/bourse/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*chi.Mux, *ledger.Repository) {
	db, cleanup := testdb.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := ledger.NewRepository(db.Conn(), log)

	r := chi.NewRouter()
	r.Route("/api/trading", NewHandler(repo, log).RegisterRoutes)
	return r, repo
}

func seed(t *testing.T, repo *ledger.Repository, user, symbol string, status ledger.Status) *ledger.Transaction {
	tx := &ledger.Transaction{
		UserID:      user,
		PortfolioID: "p1",
		Symbol:      symbol,
		Side:        domain.SideSell,
		OrderType:   domain.OrderTypeLimit,
		Status:      status,
		Amount:      decimal.RequireFromString("1.5"),
		Price:       decimal.RequireFromString("99.99"),
		Total:       decimal.RequireFromString("149.985"),
		Fee:         decimal.Zero,
		Slippage:    decimal.Zero,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), tx))
	return tx
}

func get(r http.Handler, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set(domain.UserIDHeader, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleListTransactions(t *testing.T) {
	r, repo := setup(t)
	seed(t, repo, "user-1", "SOL", ledger.StatusPending)
	seed(t, repo, "user-1", "ETH", ledger.StatusCompleted)
	seed(t, repo, "user-2", "SOL", ledger.StatusCompleted)

	w := get(r, "/api/trading/transactions?symbol=sol", "user-1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Transactions []TransactionResponse `json:"transactions"`
		Count        int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	tx := body.Transactions[0]
	assert.Equal(t, "SOL", tx.Symbol)
	assert.Equal(t, "sell", tx.Type)
	assert.Equal(t, "limit", tx.OrderType)
	assert.Equal(t, "pending", tx.Status)
	assert.Equal(t, "1.50000000", tx.Amount)
	assert.Equal(t, "99.99000000", tx.Price)
	assert.Equal(t, "149.99", tx.Total)
	assert.Equal(t, "0.00", tx.Fee)

	testCases := []struct {
		name       string
		path       string
		user       string
		wantStatus int
	}{
		{name: "no user", path: "/api/trading/transactions", wantStatus: http.StatusUnauthorized},
		{name: "bad limit", path: "/api/trading/transactions?limit=abc", user: "user-1", wantStatus: http.StatusBadRequest},
		{name: "zero limit", path: "/api/trading/transactions?limit=0", user: "user-1", wantStatus: http.StatusBadRequest},
		{name: "limited", path: "/api/trading/transactions?limit=1", user: "user-1", wantStatus: http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantStatus, get(r, tc.path, tc.user).Code)
		})
	}
}

func TestHandleGetTransaction(t *testing.T) {
	r, repo := setup(t)
	tx := seed(t, repo, "user-1", "BTC", ledger.StatusCompleted)

	w := get(r, "/api/trading/transactions/"+tx.ID, "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	var resp TransactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, tx.ID, resp.ID)

	assert.Equal(t, http.StatusNotFound, get(r, "/api/trading/transactions/"+tx.ID, "user-2").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/trading/transactions/missing", "user-1").Code)
}
