// Package portfolio stores per-user cash and holdings and applies fills to
// them.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is a user's cash account.
type Portfolio struct {
	ID            string
	UserID        string
	AvailableCash decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Holding is a position in one symbol.
type Holding struct {
	PortfolioID          string
	Symbol               string
	Amount               decimal.Decimal
	AveragePurchasePrice decimal.Decimal
	CurrentPrice         decimal.Decimal
	UpdatedAt            time.Time
}

// HoldingView is a holding valued at the current oracle price.
type HoldingView struct {
	Holding
	MarketValue      decimal.Decimal
	CostBasis        decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	UnrealizedPnLPct decimal.Decimal
	PriceAvailable   bool
}

// View is the portfolio summary returned to clients.
type View struct {
	Portfolio
	Holdings      []HoldingView
	HoldingsValue decimal.Decimal
	TotalValue    decimal.Decimal
	UnrealizedPnL decimal.Decimal
}
