package trading

import (
	"github.com/aristath/bourse/internal/domain"
	"github.com/shopspring/decimal"
)

// FeeSchedule holds the maker/taker rates.
type FeeSchedule struct {
	Taker   decimal.Decimal // market orders
	Maker   decimal.Decimal // limit orders
	Default decimal.Decimal // everything else
}

// DefaultFeeSchedule returns 0.1% taker, 0.08% maker, 0.1% otherwise.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		Taker:   decimal.RequireFromString("0.001"),
		Maker:   decimal.RequireFromString("0.0008"),
		Default: decimal.RequireFromString("0.001"),
	}
}

// RateFor returns the fee rate applied to orderType.
func (f FeeSchedule) RateFor(orderType domain.OrderType) decimal.Decimal {
	switch orderType {
	case domain.OrderTypeMarket:
		return f.Taker
	case domain.OrderTypeLimit:
		return f.Maker
	default:
		return f.Default
	}
}

// FeeBreakdown is the cash side of a fill.
type FeeBreakdown struct {
	Gross decimal.Decimal
	Rate  decimal.Decimal
	Fee   decimal.Decimal
	// Net is what the buyer pays or the seller receives.
	Net decimal.Decimal
}

// Compute prices amount units at price. Buyers pay the fee on top, sellers
// have it deducted from the proceeds.
func (f FeeSchedule) Compute(side domain.Side, orderType domain.OrderType, amount, price decimal.Decimal) FeeBreakdown {
	gross := amount.Mul(price)
	rate := f.RateFor(orderType)
	fee := gross.Mul(rate)

	net := gross.Add(fee)
	if side == domain.SideSell {
		net = gross.Sub(fee)
	}
	return FeeBreakdown{Gross: gross, Rate: rate, Fee: fee, Net: net}
}

// PreviewFees is the pure calculator behind the fee estimate endpoint.
func (f FeeSchedule) PreviewFees(side domain.Side, orderType domain.OrderType, amount, price decimal.Decimal) (FeeBreakdown, error) {
	if !amount.IsPositive() {
		return FeeBreakdown{}, domain.NewValidationError("amount", "must be greater than zero")
	}
	if !price.IsPositive() {
		return FeeBreakdown{}, domain.NewValidationError("price", "must be greater than zero")
	}
	return f.Compute(side, orderType, amount, price), nil
}
