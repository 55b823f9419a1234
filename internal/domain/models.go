// Package domain holds the types and failures shared by the trading modules.
package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide normalizes and validates an order side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", NewValidationError("type", "must be buy or sell, got %q", s)
}

// PriceQuote is a spot price snapshot from the oracle.
type PriceQuote struct {
	Symbol      string
	Name        string
	Price       decimal.Decimal
	Change24h   decimal.Decimal
	Volume24h   decimal.Decimal
	MarketCap   decimal.Decimal
	TimestampMs int64
}

// Clone returns a copy safe to hand out of a lock.
func (q *PriceQuote) Clone() *PriceQuote {
	if q == nil {
		return nil
	}
	c := *q
	return &c
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ParseDecimal parses a user supplied numeric string for field.
func ParseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, NewValidationError(field, "must be a decimal number, got %q", raw)
	}
	return d, nil
}

// ParsePositiveDecimal is ParseDecimal that also rejects zero and negatives.
func ParsePositiveDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := ParseDecimal(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, NewValidationError(field, "must be greater than zero")
	}
	return d, nil
}

// ParseOptionalDecimal returns nil for an empty string.
func ParseOptionalDecimal(field string, raw *string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := ParsePositiveDecimal(field, *raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Wire precision for amounts/prices and fiat totals.
const (
	AssetPlaces = 8
	FiatPlaces  = 2
)

// DustThreshold is the holding size at or below which a position is removed.
var DustThreshold = decimal.New(1, -8)

// FormatAsset renders a price or amount with 8 decimals.
func FormatAsset(d decimal.Decimal) string {
	return d.StringFixed(AssetPlaces)
}

// FormatFiat renders a total or fee with 2 decimals.
func FormatFiat(d decimal.Decimal) string {
	return d.StringFixed(FiatPlaces)
}

// FormatOptional renders an optional asset value, nil stays nil.
func FormatOptional(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := FormatAsset(*d)
	return &s
}

// String implements fmt.Stringer for log fields.
func (s Side) String() string { return string(s) }

// UserIDHeader carries the caller identity set by the upstream gateway.
const UserIDHeader = "X-User-ID"

// OrderType is the wire name of an order kind.
type OrderType string

const (
	OrderTypeMarket     OrderType = "market"
	OrderTypeLimit      OrderType = "limit"
	OrderTypeStopLoss   OrderType = "stop_loss"
	OrderTypeTakeProfit OrderType = "take_profit"
)

// ParseOrderType normalizes and validates an order type.
func ParseOrderType(s string) (OrderType, error) {
	switch t := OrderType(strings.ToLower(strings.TrimSpace(s))); t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopLoss, OrderTypeTakeProfit:
		return t, nil
	}
	return "", NewValidationError("orderType", "must be market, limit, stop_loss or take_profit, got %q", s)
}
