// Package trading fills orders against the synthetic book and settles them
// into portfolios and the ledger.
package trading

import (
	"github.com/aristath/bourse/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderKind is the closed set of order types. Only the types in this package
// implement it.
type OrderKind interface {
	Type() domain.OrderType
	isOrderKind()
}

// Market fills immediately at the touch plus slippage.
type Market struct{}

// Limit fills at the touch only when Price crosses it.
type Limit struct {
	Price decimal.Decimal
}

// StopLoss executes like a market order.
type StopLoss struct{}

// TakeProfit executes like a market order.
type TakeProfit struct{}

func (Market) Type() domain.OrderType     { return domain.OrderTypeMarket }
func (Limit) Type() domain.OrderType      { return domain.OrderTypeLimit }
func (StopLoss) Type() domain.OrderType   { return domain.OrderTypeStopLoss }
func (TakeProfit) Type() domain.OrderType { return domain.OrderTypeTakeProfit }

func (Market) isOrderKind()     {}
func (Limit) isOrderKind()      {}
func (StopLoss) isOrderKind()   {}
func (TakeProfit) isOrderKind() {}

// NewOrderKind builds the kind for t. A limit order needs a positive price;
// other kinds ignore it.
func NewOrderKind(t domain.OrderType, price *decimal.Decimal) (OrderKind, error) {
	switch t {
	case domain.OrderTypeMarket:
		return Market{}, nil
	case domain.OrderTypeLimit:
		if price == nil {
			return nil, domain.NewValidationError("price", "is required for limit orders")
		}
		if !price.IsPositive() {
			return nil, domain.NewValidationError("price", "must be greater than zero")
		}
		return Limit{Price: *price}, nil
	case domain.OrderTypeStopLoss:
		return StopLoss{}, nil
	case domain.OrderTypeTakeProfit:
		return TakeProfit{}, nil
	}
	return nil, domain.NewValidationError("orderType", "unsupported order type %q", t)
}

// OrderRequest is a validated order from a user.
type OrderRequest struct {
	Symbol     string
	Side       domain.Side
	Kind       OrderKind
	Amount     decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

// Validate checks the request shape. Price-dependent checks happen at
// execution time.
func (r *OrderRequest) Validate() error {
	if r.Symbol == "" {
		return domain.NewValidationError("symbol", "is required")
	}
	if r.Side != domain.SideBuy && r.Side != domain.SideSell {
		return domain.NewValidationError("type", "must be buy or sell")
	}
	if r.Kind == nil {
		return domain.NewValidationError("orderType", "is required")
	}
	if !r.Amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than zero")
	}
	if r.StopLoss != nil && !r.StopLoss.IsPositive() {
		return domain.NewValidationError("stopLoss", "must be greater than zero")
	}
	if r.TakeProfit != nil && !r.TakeProfit.IsPositive() {
		return domain.NewValidationError("takeProfit", "must be greater than zero")
	}
	return nil
}

// ExecutionStatus is the outcome of one attempt against the book.
type ExecutionStatus string

const (
	StatusFilled  ExecutionStatus = "filled"
	StatusPending ExecutionStatus = "pending"
)

// ExecutionResult is the fill computed from the book.
type ExecutionResult struct {
	Status         ExecutionStatus
	ExecutionPrice decimal.Decimal
	ExecutedAmount decimal.Decimal
	Slippage       decimal.Decimal
}

// Filled reports whether any amount executed.
func (r ExecutionResult) Filled() bool {
	return r.Status == StatusFilled
}
