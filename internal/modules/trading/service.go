package trading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/bourse/internal/database"
	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/events"
	"github.com/aristath/bourse/internal/metrics"
	"github.com/aristath/bourse/internal/modules/ledger"
	"github.com/aristath/bourse/internal/modules/orderbook"
	"github.com/aristath/bourse/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PriceSource provides the current spot price.
type PriceSource interface {
	Get(symbol string) *domain.PriceQuote
}

// BookSource provides the order book for a symbol.
type BookSource interface {
	Book(ctx context.Context, symbol string) (*orderbook.Book, error)
}

// Settlement is the outcome of an accepted order.
type Settlement struct {
	Transaction *ledger.Transaction
	Result      ExecutionResult
	Fees        FeeBreakdown // zero for pending orders
}

// ExecutionService validates orders, fills them against the book and settles
// the fill into the user's portfolio and the ledger atomically.
type ExecutionService struct {
	db         *sql.DB
	portfolios *portfolio.Repository
	ledger     *ledger.Repository
	books      BookSource
	prices     PriceSource
	fees       FeeSchedule
	events     *events.Manager
	locks      *keyedMutex
	now        func() time.Time
	log        zerolog.Logger
}

// NewExecutionService creates a new execution service. eventManager may be nil.
func NewExecutionService(
	db *sql.DB,
	portfolios *portfolio.Repository,
	ledgerRepo *ledger.Repository,
	books BookSource,
	prices PriceSource,
	fees FeeSchedule,
	eventManager *events.Manager,
	log zerolog.Logger,
) *ExecutionService {
	return &ExecutionService{
		db:         db,
		portfolios: portfolios,
		ledger:     ledgerRepo,
		books:      books,
		prices:     prices,
		fees:       fees,
		events:     eventManager,
		locks:      newKeyedMutex(),
		now:        time.Now,
		log:        log.With().Str("service", "trading").Logger(),
	}
}

// Fees returns the configured fee schedule.
func (s *ExecutionService) Fees() FeeSchedule {
	return s.fees
}

// Execute runs one order for userID. Orders of the same user are serialized;
// the ledger record, holding and cash change commit together or not at all.
func (s *ExecutionService) Execute(ctx context.Context, userID string, req *OrderRequest) (*Settlement, error) {
	req.Symbol = domain.NormalizeSymbol(req.Symbol)

	var err error
	if userID == "" {
		err = domain.NewValidationError("userId", "is required")
	} else {
		err = req.Validate()
	}
	if err != nil {
		s.reject(userID, req, err)
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	settlement, err := s.execute(ctx, userID, req)
	if err != nil {
		s.reject(userID, req, err)
		return nil, err
	}

	s.accepted(settlement)
	return settlement, nil
}

func (s *ExecutionService) execute(ctx context.Context, userID string, req *OrderRequest) (*Settlement, error) {
	quote := s.prices.Get(req.Symbol)

	ref, err := referencePrice(req, quote)
	if err != nil {
		return nil, err
	}
	if err := ValidateOrderAmount(req.Amount.Mul(ref)); err != nil {
		return nil, err
	}

	if req.StopLoss != nil {
		if quote == nil {
			return nil, fmt.Errorf("stop loss check for %s: %w", req.Symbol, domain.ErrPriceUnavailable)
		}
		if err := ValidateStopLoss(quote.Price, *req.StopLoss, req.Side); err != nil {
			return nil, err
		}
	}

	book, err := s.books.Book(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get order book for %s: %w", req.Symbol, err)
	}

	result, err := Execute(book, req)
	if err != nil {
		return nil, err
	}

	settlement := s.prepare(userID, req, result)

	start := time.Now()
	err = database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return settle(ctx, s.portfolios.WithTx(tx), s.ledger.WithTx(tx), settlement, s.now())
	})
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// referencePrice is the price the notional bounds are checked against: the
// limit for limit orders, otherwise the oracle spot.
func referencePrice(req *OrderRequest, quote *domain.PriceQuote) (decimal.Decimal, error) {
	if limit, ok := req.Kind.(Limit); ok {
		return limit.Price, nil
	}
	if quote == nil {
		return decimal.Zero, fmt.Errorf("no price for %s: %w", req.Symbol, domain.ErrPriceUnavailable)
	}
	return quote.Price, nil
}

// prepare builds the ledger record for result. Pending limit orders record
// the requested amount at the limit price and carry no fee.
func (s *ExecutionService) prepare(userID string, req *OrderRequest, result ExecutionResult) *Settlement {
	orderType := req.Kind.Type()
	t := &ledger.Transaction{
		UserID:     userID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		OrderType:  orderType,
		Slippage:   result.Slippage,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	}

	if !result.Filled() {
		t.Status = ledger.StatusPending
		t.Amount = req.Amount
		t.Price = result.ExecutionPrice
		t.Total = req.Amount.Mul(result.ExecutionPrice)
		t.Fee = decimal.Zero
		return &Settlement{Transaction: t, Result: result}
	}

	fees := s.fees.Compute(req.Side, orderType, result.ExecutedAmount, result.ExecutionPrice)
	t.Status = ledger.StatusCompleted
	t.Amount = result.ExecutedAmount
	t.Price = result.ExecutionPrice
	t.Total = fees.Gross
	t.Fee = fees.Fee
	return &Settlement{Transaction: t, Result: result, Fees: fees}
}

// settle applies st inside the caller's transaction.
func settle(ctx context.Context, portfolios portfolio.Store, transactions ledger.Store, st *Settlement, now time.Time) error {
	t := st.Transaction

	p, err := portfolios.GetPortfolio(ctx, t.UserID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("user %s: %w", t.UserID, domain.ErrPortfolioNotFound)
	}
	t.PortfolioID = p.ID
	t.CreatedAt = now

	if !st.Result.Filled() {
		return transactions.Create(ctx, t)
	}

	holding, err := portfolios.GetHolding(ctx, p.ID, t.Symbol)
	if err != nil {
		return err
	}

	executed := st.Result.ExecutedAmount
	price := st.Result.ExecutionPrice
	var cash decimal.Decimal

	switch t.Side {
	case domain.SideBuy:
		if st.Fees.Net.GreaterThan(p.AvailableCash) {
			return fmt.Errorf("need %s, have %s: %w",
				domain.FormatFiat(st.Fees.Net), domain.FormatFiat(p.AvailableCash), domain.ErrInsufficientFunds)
		}
		if err := transactions.Create(ctx, t); err != nil {
			return err
		}
		if err := portfolios.UpsertHolding(ctx, portfolio.ApplyBuy(holding, p.ID, t.Symbol, executed, price, now)); err != nil {
			return err
		}
		cash = p.AvailableCash.Sub(st.Fees.Net)

	case domain.SideSell:
		if holding == nil || executed.GreaterThan(holding.Amount) {
			held := decimal.Zero
			if holding != nil {
				held = holding.Amount
			}
			return fmt.Errorf("sell %s %s, hold %s: %w",
				domain.FormatAsset(executed), t.Symbol, domain.FormatAsset(held), domain.ErrInsufficientHoldings)
		}
		if err := transactions.Create(ctx, t); err != nil {
			return err
		}
		next, dust := portfolio.ApplySell(*holding, executed, price, now)
		if dust {
			err = portfolios.DeleteHolding(ctx, p.ID, t.Symbol)
		} else {
			err = portfolios.UpsertHolding(ctx, next)
		}
		if err != nil {
			return err
		}
		cash = p.AvailableCash.Add(st.Fees.Net)

	default:
		return fmt.Errorf("unknown side %q", t.Side)
	}

	return portfolios.UpdateCash(ctx, p.ID, cash)
}

func (s *ExecutionService) accepted(st *Settlement) {
	t := st.Transaction
	metrics.OrdersTotal.WithLabelValues(t.Symbol, t.Side.String(), string(t.OrderType), string(st.Result.Status)).Inc()

	if st.Result.Filled() {
		metrics.FeesCollected.WithLabelValues(string(t.OrderType)).Add(st.Fees.Fee.InexactFloat64())
		s.log.Info().
			Str("transaction_id", t.ID).
			Str("user_id", t.UserID).
			Str("symbol", t.Symbol).
			Str("side", t.Side.String()).
			Str("order_type", string(t.OrderType)).
			Str("amount", domain.FormatAsset(t.Amount)).
			Str("price", domain.FormatAsset(t.Price)).
			Str("net_total", domain.FormatFiat(st.Fees.Net)).
			Msg("Order filled")

		if s.events != nil {
			s.events.EmitTyped("trading", &events.TradeExecutedData{
				TransactionID: t.ID,
				UserID:        t.UserID,
				Symbol:        t.Symbol,
				Side:          t.Side.String(),
				OrderType:     string(t.OrderType),
				Amount:        domain.FormatAsset(t.Amount),
				Price:         domain.FormatAsset(t.Price),
				Fee:           domain.FormatFiat(t.Fee),
				NetTotal:      domain.FormatFiat(st.Fees.Net),
			})
		}
		return
	}

	s.log.Info().
		Str("transaction_id", t.ID).
		Str("user_id", t.UserID).
		Str("symbol", t.Symbol).
		Str("side", t.Side.String()).
		Str("limit_price", domain.FormatAsset(t.Price)).
		Msg("Limit order left pending")

	if s.events != nil {
		s.events.EmitTyped("trading", &events.OrderPendingData{
			TransactionID: t.ID,
			UserID:        t.UserID,
			Symbol:        t.Symbol,
			Side:          t.Side.String(),
			Amount:        domain.FormatAsset(t.Amount),
			LimitPrice:    domain.FormatAsset(t.Price),
		})
	}
}

func (s *ExecutionService) reject(userID string, req *OrderRequest, err error) {
	reason := rejectionReason(err)
	metrics.OrderRejectionsTotal.WithLabelValues(reason).Inc()

	logEvent := s.log.Info()
	if reason == metrics.ReasonInternal {
		logEvent = s.log.Error()
	}
	logEvent.
		Err(err).
		Str("user_id", userID).
		Str("symbol", req.Symbol).
		Str("side", req.Side.String()).
		Str("amount", req.Amount.String()).
		Str("reason", reason).
		Msg("Order rejected")

	if s.events != nil {
		s.events.EmitTyped("trading", &events.OrderRejectedData{
			UserID: userID,
			Symbol: req.Symbol,
			Side:   req.Side.String(),
			Reason: reason,
		})
	}
}

func rejectionReason(err error) string {
	switch {
	case domain.IsValidation(err):
		return metrics.ReasonValidation
	case errors.Is(err, domain.ErrOrderTooSmall):
		return metrics.ReasonOrderTooSmall
	case errors.Is(err, domain.ErrOrderTooLarge):
		return metrics.ReasonOrderTooLarge
	case errors.Is(err, domain.ErrPriceUnavailable):
		return metrics.ReasonPriceUnavailable
	case errors.Is(err, domain.ErrInvalidStopLoss):
		return metrics.ReasonInvalidStopLoss
	case errors.Is(err, domain.ErrInsufficientFunds):
		return metrics.ReasonInsufficientFunds
	case errors.Is(err, domain.ErrInsufficientHoldings):
		return metrics.ReasonInsufficientHolding
	case errors.Is(err, domain.ErrPortfolioNotFound):
		return metrics.ReasonPortfolioNotFound
	default:
		return metrics.ReasonInternal
	}
}
