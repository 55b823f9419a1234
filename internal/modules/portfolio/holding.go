package portfolio

import (
	"time"

	"github.com/aristath/bourse/internal/domain"
	"github.com/shopspring/decimal"
)

// ApplyBuy returns the holding after buying executed units at price.
// current may be nil for a new position. The average purchase price is the
// amount-weighted mean of the old basis and the fill.
func ApplyBuy(current *Holding, portfolioID, symbol string, executed, price decimal.Decimal, now time.Time) Holding {
	next := Holding{
		PortfolioID:  portfolioID,
		Symbol:       symbol,
		CurrentPrice: price,
		UpdatedAt:    now,
	}

	if current == nil || !current.Amount.IsPositive() {
		next.Amount = executed
		next.AveragePurchasePrice = price
		return next
	}

	next.Amount = current.Amount.Add(executed)
	cost := current.Amount.Mul(current.AveragePurchasePrice).Add(executed.Mul(price))
	// next.Amount > 0 because both terms are positive
	next.AveragePurchasePrice = cost.Div(next.Amount)
	return next
}

// ApplySell returns the holding after selling executed units at price, and
// whether the remainder is dust that should be deleted instead. The average
// purchase price is unchanged by sells.
func ApplySell(current Holding, executed, price decimal.Decimal, now time.Time) (Holding, bool) {
	next := current
	next.Amount = current.Amount.Sub(executed)
	next.CurrentPrice = price
	next.UpdatedAt = now
	return next, next.Amount.LessThanOrEqual(domain.DustThreshold)
}
