// Package orderbook synthesizes a ten-level bid/ask ladder around the oracle
// spot price and caches it per symbol.
package orderbook

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ladder shape
const (
	Levels = 10
)

var (
	// LevelStep is the relative price offset between successive levels (0.1%).
	LevelStep = decimal.RequireFromString("0.001")
	// MinLevelAmount and MaxLevelAmount bound the random depth at each level.
	MinLevelAmount = 0.1
	MaxLevelAmount = 5.1
)

// DefaultTTL is how long a generated book is served before regeneration.
const DefaultTTL = 30 * time.Second

// Level is one price level of the synthetic book.
type Level struct {
	Price     decimal.Decimal
	Amount    decimal.Decimal
	Total     decimal.Decimal // Price * Amount
	Timestamp time.Time
}

// Book is the synthetic ladder for one symbol. Bids descend, asks ascend.
type Book struct {
	Symbol      string
	Bids        []Level
	Asks        []Level
	Spread      decimal.Decimal
	GeneratedAt time.Time
}

// BestBid returns the top bid price.
func (b *Book) BestBid() decimal.Decimal {
	return b.Bids[0].Price
}

// BestAsk returns the top ask price.
func (b *Book) BestAsk() decimal.Decimal {
	return b.Asks[0].Price
}

// Mid returns the midpoint between the touch prices.
func (b *Book) Mid() decimal.Decimal {
	return b.BestBid().Add(b.BestAsk()).Div(decimal.NewFromInt(2))
}

// FreshAt reports whether the book may still be served at now.
func (b *Book) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(b.GeneratedAt) <= ttl
}
