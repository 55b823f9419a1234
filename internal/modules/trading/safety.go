package trading

import (
	"fmt"

	"github.com/aristath/bourse/internal/domain"
	"github.com/shopspring/decimal"
)

// Order notional bounds in quote currency.
var (
	MinOrderAmount = decimal.NewFromInt(1)
	MaxOrderAmount = decimal.NewFromInt(1_000_000)
)

// ValidateOrderAmount rejects notionals outside [MinOrderAmount, MaxOrderAmount].
func ValidateOrderAmount(notional decimal.Decimal) error {
	if notional.LessThan(MinOrderAmount) {
		return fmt.Errorf("notional %s: %w", notional.StringFixed(domain.FiatPlaces), domain.ErrOrderTooSmall)
	}
	if notional.GreaterThan(MaxOrderAmount) {
		return fmt.Errorf("notional %s: %w", notional.StringFixed(domain.FiatPlaces), domain.ErrOrderTooLarge)
	}
	return nil
}

// ValidateStopLoss requires a buy stop below the current price and a sell
// stop above it.
func ValidateStopLoss(current, stop decimal.Decimal, side domain.Side) error {
	switch side {
	case domain.SideBuy:
		if stop.GreaterThanOrEqual(current) {
			return fmt.Errorf("buy stop %s must be below current price %s: %w", stop, current, domain.ErrInvalidStopLoss)
		}
	case domain.SideSell:
		if stop.LessThanOrEqual(current) {
			return fmt.Errorf("sell stop %s must be above current price %s: %w", stop, current, domain.ErrInvalidStopLoss)
		}
	}
	return nil
}
