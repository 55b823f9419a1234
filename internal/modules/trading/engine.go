package trading

import (
	"fmt"

	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/modules/orderbook"
	"github.com/shopspring/decimal"
)

var (
	slippageBase      = decimal.RequireFromString("0.001")
	slippageImpactCap = decimal.RequireFromString("0.02")
	hundred           = decimal.NewFromInt(100)
	one               = decimal.NewFromInt(1)
)

// Slippage is the relative price penalty for a market order of amount:
// 0.001 + min(amount/100, 0.02).
func Slippage(amount decimal.Decimal) decimal.Decimal {
	return slippageBase.Add(decimal.Min(amount.Div(hundred), slippageImpactCap))
}

// ExecuteMarket fills amount in full at the touch moved against the taker by
// the slippage.
func ExecuteMarket(book *orderbook.Book, side domain.Side, amount decimal.Decimal) (ExecutionResult, error) {
	if err := checkBook(book); err != nil {
		return ExecutionResult{}, err
	}

	s := Slippage(amount)
	var price decimal.Decimal
	switch side {
	case domain.SideBuy:
		price = book.BestAsk().Mul(one.Add(s))
	case domain.SideSell:
		price = book.BestBid().Mul(one.Sub(s))
	default:
		return ExecutionResult{}, fmt.Errorf("unknown side %q", side)
	}

	return ExecutionResult{
		Status:         StatusFilled,
		ExecutionPrice: price,
		ExecutedAmount: amount,
		Slippage:       s,
	}, nil
}

// ExecuteLimit fills at the opposing touch when limit crosses it and
// otherwise leaves the order pending at limit. Limit orders pay no slippage.
func ExecuteLimit(book *orderbook.Book, side domain.Side, amount, limit decimal.Decimal) (ExecutionResult, error) {
	if err := checkBook(book); err != nil {
		return ExecutionResult{}, err
	}

	switch side {
	case domain.SideBuy:
		if ask := book.BestAsk(); limit.GreaterThanOrEqual(ask) {
			return filledAt(ask, amount), nil
		}
	case domain.SideSell:
		if bid := book.BestBid(); limit.LessThanOrEqual(bid) {
			return filledAt(bid, amount), nil
		}
	default:
		return ExecutionResult{}, fmt.Errorf("unknown side %q", side)
	}

	return ExecutionResult{
		Status:         StatusPending,
		ExecutionPrice: limit,
		ExecutedAmount: decimal.Zero,
		Slippage:       decimal.Zero,
	}, nil
}

// Execute dispatches req to the fill rule of its order kind.
func Execute(book *orderbook.Book, req *OrderRequest) (ExecutionResult, error) {
	switch k := req.Kind.(type) {
	case Market, StopLoss, TakeProfit:
		return ExecuteMarket(book, req.Side, req.Amount)
	case Limit:
		return ExecuteLimit(book, req.Side, req.Amount, k.Price)
	default:
		return ExecutionResult{}, fmt.Errorf("unsupported order kind %T", req.Kind)
	}
}

func filledAt(price, amount decimal.Decimal) ExecutionResult {
	return ExecutionResult{
		Status:         StatusFilled,
		ExecutionPrice: price,
		ExecutedAmount: amount,
		Slippage:       decimal.Zero,
	}
}

func checkBook(book *orderbook.Book) error {
	if book == nil || len(book.Bids) == 0 || len(book.Asks) == 0 {
		return fmt.Errorf("order book is empty")
	}
	return nil
}
