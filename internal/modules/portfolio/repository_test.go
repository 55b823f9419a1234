package portfolio

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/bourse/internal/database"
	"github.com/aristath/bourse/internal/domain"
	testdb "github.com/aristath/bourse/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repository, *database.DB) {
	t.Helper()
	db, cleanup := testdb.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.New(nil).Level(zerolog.Disabled)), db
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "user-1", d("1000"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.GetPortfolio(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.AvailableCash.Equal(d("1000")))

	missing, err := repo.GetPortfolio(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.Create(ctx, "user-1", d("5"))
	assert.ErrorIs(t, err, domain.ErrPortfolioExists)

	got, err = repo.GetPortfolio(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.AvailableCash.Equal(d("1000")))
}

func TestRepository_UpdateCash(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.Create(ctx, "user-1", d("1000"))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateCash(ctx, p.ID, d("549.54954955")))
	got, err := repo.GetPortfolio(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "549.54954955", got.AvailableCash.String())

	assert.Error(t, repo.UpdateCash(ctx, "missing", d("1")))
}

func TestRepository_Holdings(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.Create(ctx, "user-1", d("0"))
	require.NoError(t, err)

	h, err := repo.GetHolding(ctx, p.ID, "BTC")
	require.NoError(t, err)
	assert.Nil(t, h)

	require.NoError(t, repo.UpsertHolding(ctx, Holding{
		PortfolioID: p.ID, Symbol: "BTC", Amount: d("0.01"),
		AveragePurchasePrice: d("45540.495"), CurrentPrice: d("45540.495"), UpdatedAt: time.Now(),
	}))
	require.NoError(t, repo.UpsertHolding(ctx, Holding{
		PortfolioID: p.ID, Symbol: "ETH", Amount: d("2"),
		AveragePurchasePrice: d("2500"), CurrentPrice: d("2500"),
	}))
	require.NoError(t, repo.UpsertHolding(ctx, Holding{
		PortfolioID: p.ID, Symbol: "BTC", Amount: d("0.02"),
		AveragePurchasePrice: d("45000"), CurrentPrice: d("45100"),
	}))

	h, err = repo.GetHolding(ctx, p.ID, "BTC")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "0.02", h.Amount.String())
	assert.Equal(t, "45000", h.AveragePurchasePrice.String())

	all, err := repo.ListHoldings(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "BTC", all[0].Symbol)
	assert.Equal(t, "ETH", all[1].Symbol)

	require.NoError(t, repo.DeleteHolding(ctx, p.ID, "BTC"))
	h, err = repo.GetHolding(ctx, p.ID, "BTC")
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestRepository_WithTxRollsBack(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.Create(ctx, "user-1", d("100"))
	require.NoError(t, err)

	err = database.WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
		txRepo := repo.WithTx(tx)
		if err := txRepo.UpdateCash(ctx, p.ID, d("0")); err != nil {
			return err
		}
		return sql.ErrTxDone // any error aborts
	})
	require.Error(t, err)

	got, err := repo.GetPortfolio(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.AvailableCash.Equal(d("100")))
}
