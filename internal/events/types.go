// Package events provides in-process event fan-out, logging, and optional
// publication to NATS.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	TradeExecuted    EventType = "TRADE_EXECUTED"
	OrderPending     EventType = "ORDER_PENDING"
	OrderRejected    EventType = "ORDER_REJECTED"
	PriceUpdated     EventType = "PRICE_UPDATED"
	PortfolioCreated EventType = "PORTFOLIO_CREATED"
	BackupCompleted  EventType = "BACKUP_COMPLETED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every type a stream client may subscribe to.
var AllEventTypes = []EventType{
	TradeExecuted,
	OrderPending,
	OrderRejected,
	PriceUpdated,
	PortfolioCreated,
	BackupCompleted,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
