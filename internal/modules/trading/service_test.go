package trading

import (
	"context"
	"sync"
	"testing"

	"github.com/aristath/bourse/internal/database"
	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/events"
	"github.com/aristath/bourse/internal/modules/ledger"
	"github.com/aristath/bourse/internal/modules/orderbook"
	"github.com/aristath/bourse/internal/modules/portfolio"
	testdb "github.com/aristath/bourse/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticPrices is a fixed quote table.
type staticPrices map[string]decimal.Decimal

func (p staticPrices) Get(symbol string) *domain.PriceQuote {
	price, ok := p[symbol]
	if !ok {
		return nil
	}
	return &domain.PriceQuote{Symbol: symbol, Price: price}
}

// fixedRandom always returns the same value.
type fixedRandom float64

func (f fixedRandom) Float64() float64 { return float64(f) }

type fixture struct {
	db         *database.DB
	service    *ExecutionService
	portfolios *portfolio.Repository
	ledger     *ledger.Repository
	bus        *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, cleanup := testdb.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	prices := staticPrices{"BTC": d("45000"), "ETH": d("2500")}
	books := orderbook.NewSynthesizer(prices, orderbook.NewMemoryCache(), fixedRandom(0.5), orderbook.DefaultTTL, log)
	bus := events.NewBus(log)

	portfolios := portfolio.NewRepository(db.Conn(), log)
	ledgerRepo := ledger.NewRepository(db.Conn(), log)

	return &fixture{
		db:         db,
		service:    NewExecutionService(db.Conn(), portfolios, ledgerRepo, books, prices, DefaultFeeSchedule(), events.NewManager(bus, nil, log), log),
		portfolios: portfolios,
		ledger:     ledgerRepo,
		bus:        bus,
	}
}

func (f *fixture) cash(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	p, err := f.portfolios.GetPortfolio(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.AvailableCash
}

func (f *fixture) holding(t *testing.T, portfolioID, symbol string) *portfolio.Holding {
	t.Helper()
	h, err := f.portfolios.GetHolding(context.Background(), portfolioID, symbol)
	require.NoError(t, err)
	return h
}

func marketBuy(symbol, amount string) *OrderRequest {
	return &OrderRequest{Symbol: symbol, Side: domain.SideBuy, Kind: Market{}, Amount: d(amount)}
}

func TestExecute_EndToEndMarketBuy(t *testing.T) {
	f := newFixture(t)
	testdb.SeedPortfolio(t, f.db, "p1", "user-1", "1000")

	var executed []*events.Event
	f.bus.Subscribe(events.TradeExecuted, func(e *events.Event) { executed = append(executed, e) })

	st, err := f.service.Execute(context.Background(), "user-1", marketBuy("btc", "0.01"))
	require.NoError(t, err)

	// ask0 = 45045, slippage(0.01) = 0.0011
	assert.Equal(t, StatusFilled, st.Result.Status)
	assert.True(t, st.Result.ExecutionPrice.Equal(d("45094.5495")), "price %s", st.Result.ExecutionPrice)
	assert.True(t, st.Fees.Gross.Equal(d("450.945495")))
	assert.True(t, st.Fees.Fee.Equal(d("0.450945495")))
	assert.True(t, st.Fees.Net.Equal(d("451.396440495")))

	tx := st.Transaction
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "p1", tx.PortfolioID)
	assert.Equal(t, "BTC", tx.Symbol)
	assert.Equal(t, ledger.StatusCompleted, tx.Status)
	assert.True(t, tx.Amount.Equal(d("0.01")))

	assert.True(t, f.cash(t, "user-1").Equal(d("548.603559505")), "cash %s", f.cash(t, "user-1"))

	h := f.holding(t, "p1", "BTC")
	require.NotNil(t, h)
	assert.True(t, h.Amount.Equal(d("0.01")))
	assert.True(t, h.AveragePurchasePrice.Equal(d("45094.5495")))

	stored, err := f.ledger.GetByID(context.Background(), "user-1", tx.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Fee.Equal(d("0.450945495")))

	require.Len(t, executed, 1)
	assert.Equal(t, "451.40", executed[0].Data["net_total"])
}

func TestExecute_InsufficientFundsIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	testdb.SeedPortfolio(t, f.db, "p1", "user-1", "100")

	_, err := f.service.Execute(context.Background(), "user-1", marketBuy("BTC", "0.01"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, 0, testdb.CountRows(t, f.db, "transactions"))
	assert.Equal(t, 0, testdb.CountRows(t, f.db, "holdings"))
	assert.True(t, f.cash(t, "user-1").Equal(d("100")))
}

func TestExecute_SellAllRemovesDust(t *testing.T) {
	f := newFixture(t)
	testdb.SeedPortfolio(t, f.db, "p1", "user-1", "0")
	testdb.SeedHolding(t, f.db, "p1", "BTC", "0.01", "40000")

	st, err := f.service.Execute(context.Background(), "user-1",
		&OrderRequest{Symbol: "BTC", Side: domain.SideSell, Kind: Market{}, Amount: d("0.01")})
	require.NoError(t, err)

	// bid0 = 44955, slippage 0.0011
	assert.True(t, st.Result.ExecutionPrice.Equal(d("44905.5495")))
	assert.True(t, st.Fees.Net.Equal(d("448.606439505")))
	assert.Nil(t, f.holding(t, "p1", "BTC"))
	assert.True(t, f.cash(t, "user-1").Equal(d("448.606439505")))
}

func TestExecute_PartialSellKeepsCostBasis(t *testing.T) {
	f := newFixture(t)
	testdb.SeedPortfolio(t, f.db, "p1", "user-1", "0")
	testdb.SeedHolding(t, f.db, "p1", "ETH", "2", "2000")

	_, err := f.service.Execute(context.Background(), "user-1",
		&OrderRequest{Symbol: "ETH", Side: domain.SideSell, Kind: Market{}, Amount: d("0.5")})
	require.NoError(t, err)

	h := f.holding(t, "p1", "ETH")
	require.NotNil(t, h)
	assert.True(t, h.Amount.Equal(d("1.5")))
	assert.True(t, h.AveragePurchasePrice.Equal(d("2000")))
}

func TestExecute_InsufficientHoldings(t *testing.T) {
	f := newFixture(t)
	testdb.SeedPortfolio(t, f.db, "p1", "user-1", "0")
	testdb.SeedHolding(t, f.db, "p1", "ETH", "0.1", "2000")

	_, err := f.service.Execute(context.Background(), "user-1",
		&OrderRequest{Symbol: "ETH", Side: domain.SideSell, Kind: Market{}, Amount: d("0.2")})
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)

	_, err = f.service.Execute(context.Background(), "user-1",
		&OrderRequest{Symbol: "BTC", Side: domain.SideSell, Kind: Market{}, Amount: d("0.01")})
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)

	assert.Equal(t, 0, testdb.CountRows(t, f.db, "transactions"))
	assert.True(t, f.holding(t, "p1", "ETH").Amount.Equal(d("0.1")))
}

func TestExecute_LimitOrders(t *testing.T) {
	f := newFixture(t)
	testdb.SeedPortfolio(t, f.db, "p1", "user-1", "1000")

	var pending []*events.Event
	f.bus.Subscribe(events.OrderPending, func(e *events.Event) { pending = append(pending, e) })

	st, err := f.service.Execute(context.Background(), "user-1",
		&OrderRequest{Symbol: "BTC", Side: domain.SideBuy, Kind: Limit{Price: d("40000")}, Amount: d("0.01")})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st.Result.Status)
	assert.Equal(t, ledger.StatusPending, st.Transaction.Status)
	assert.True(t, st.Transaction.Amount.Equal(d("0.01")))
	assert.True(t, st.Transaction.Price.Equal(d("40000")))
	assert.True(t, st.Transaction.Fee.IsZero())
	assert.True(t, f.cash(t, "user-1").Equal(d("1000")))
	assert.Nil(t, f.holding(t, "p1", "BTC"))
	require.Len(t, pending, 1)

	st, err = f.service.Execute(context.Background(), "user-1",
		&OrderRequest{Symbol: "BTC", Side: domain.SideBuy, Kind: Limit{Price: d("46000")}, Amount: d("0.01")})
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, st.Result.Status)
	assert.True(t, st.Result.ExecutionPrice.Equal(d("45045")))
	assert.True(t, st.Fees.Fee.Equal(d("0.36036")), "maker fee %s", st.Fees.Fee)
	assert.True(t, f.cash(t, "user-1").Equal(d("549.18964")))

	assert.Equal(t, 2, testdb.CountRows(t, f.db, "transactions"))
}

func TestExecute_Rejections(t *testing.T) {
	f := newFixture(t)
	testdb.SeedPortfolio(t, f.db, "p1", "user-1", "1000000")

	stop := d("46000")
	testCases := []struct {
		name    string
		userID  string
		req     *OrderRequest
		wantErr error
	}{
		{name: "no portfolio", userID: "user-2", req: marketBuy("BTC", "0.01"), wantErr: domain.ErrPortfolioNotFound},
		{name: "no price", userID: "user-1", req: marketBuy("XYZ", "1"), wantErr: domain.ErrPriceUnavailable},
		{name: "too small", userID: "user-1", req: marketBuy("BTC", "0.00001"), wantErr: domain.ErrOrderTooSmall},
		{name: "too large", userID: "user-1", req: marketBuy("BTC", "100"), wantErr: domain.ErrOrderTooLarge},
		{
			name:    "stop above price on buy",
			userID:  "user-1",
			req:     &OrderRequest{Symbol: "BTC", Side: domain.SideBuy, Kind: Market{}, Amount: d("0.01"), StopLoss: &stop},
			wantErr: domain.ErrInvalidStopLoss,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Execute(context.Background(), tc.userID, tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	_, err := f.service.Execute(context.Background(), "user-1", marketBuy("BTC", "0"))
	assert.True(t, domain.IsValidation(err))
	_, err = f.service.Execute(context.Background(), "", marketBuy("BTC", "1"))
	assert.True(t, domain.IsValidation(err))

	assert.Equal(t, 0, testdb.CountRows(t, f.db, "transactions"))
}

func TestExecute_StopLossAndTakeProfitRecorded(t *testing.T) {
	f := newFixture(t)
	testdb.SeedPortfolio(t, f.db, "p1", "user-1", "0")
	testdb.SeedHolding(t, f.db, "p1", "BTC", "1", "30000")

	stop := d("46000")
	take := d("50000")
	st, err := f.service.Execute(context.Background(), "user-1",
		&OrderRequest{Symbol: "BTC", Side: domain.SideSell, Kind: StopLoss{}, Amount: d("0.1"), StopLoss: &stop, TakeProfit: &take})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderTypeStopLoss, st.Transaction.OrderType)
	assert.True(t, st.Fees.Rate.Equal(d("0.001")))

	stored, err := f.ledger.GetByID(context.Background(), "user-1", st.Transaction.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StopLoss)
	require.NotNil(t, stored.TakeProfit)
	assert.True(t, stored.StopLoss.Equal(stop))
	assert.True(t, stored.TakeProfit.Equal(take))
}

func TestExecute_ConcurrentBuysNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	testdb.SeedPortfolio(t, f.db, "p1", "user-1", "1000")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		filled   int
		rejected int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Execute(context.Background(), "user-1", marketBuy("BTC", "0.01"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				filled++
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			rejected++
		}()
	}
	wg.Wait()

	// each fill costs 451.396440495
	assert.Equal(t, 2, filled)
	assert.Equal(t, 6, rejected)
	assert.Equal(t, 2, testdb.CountRows(t, f.db, "transactions"))
	assert.True(t, f.cash(t, "user-1").Equal(d("97.20711901")))

	h := f.holding(t, "p1", "BTC")
	require.NotNil(t, h)
	assert.True(t, h.Amount.Equal(d("0.02")))
}
