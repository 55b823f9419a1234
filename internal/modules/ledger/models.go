// Package ledger is the append-only record of order attempts.
package ledger

import (
	"fmt"
	"time"

	"github.com/aristath/bourse/internal/domain"
	"github.com/shopspring/decimal"
)

// Status reflects the execution outcome at the time of the attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Transaction is one accepted order attempt. It is never updated after
// creation.
type Transaction struct {
	ID          string
	UserID      string
	PortfolioID string
	Symbol      string
	Side        domain.Side
	OrderType   domain.OrderType
	Status      Status
	Amount      decimal.Decimal
	Price       decimal.Decimal
	Total       decimal.Decimal
	Fee         decimal.Decimal
	Slippage    decimal.Decimal
	StopLoss    *decimal.Decimal
	TakeProfit  *decimal.Decimal
	CreatedAt   time.Time
}

// Validate checks the record before insertion.
func (t *Transaction) Validate() error {
	if t.UserID == "" || t.PortfolioID == "" {
		return fmt.Errorf("transaction requires user and portfolio")
	}
	if t.Symbol == "" {
		return fmt.Errorf("transaction requires a symbol")
	}
	if t.Side != domain.SideBuy && t.Side != domain.SideSell {
		return fmt.Errorf("invalid side %q", t.Side)
	}
	switch t.Status {
	case StatusPending, StatusCompleted:
	default:
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", t.Amount)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("price must be positive, got %s", t.Price)
	}
	if t.Fee.IsNegative() {
		return fmt.Errorf("fee must not be negative, got %s", t.Fee)
	}
	return nil
}
