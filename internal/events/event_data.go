package events

// EventData is the interface that all typed event payloads implement
type EventData interface {
	EventType() EventType
}

// TradeExecutedData contains data for TradeExecuted events
type TradeExecutedData struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	OrderType     string `json:"order_type"`
	Amount        string `json:"amount"`
	Price         string `json:"price"`
	Fee           string `json:"fee"`
	NetTotal      string `json:"net_total"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// OrderPendingData contains data for OrderPending events
type OrderPendingData struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Amount        string `json:"amount"`
	LimitPrice    string `json:"limit_price"`
}

// EventType returns the event type for OrderPendingData
func (d *OrderPendingData) EventType() EventType {
	return OrderPending
}

// OrderRejectedData contains data for OrderRejected events
type OrderRejectedData struct {
	UserID string `json:"user_id"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Reason string `json:"reason"`
}

// EventType returns the event type for OrderRejectedData
func (d *OrderRejectedData) EventType() EventType {
	return OrderRejected
}

// PriceUpdatedData contains data for PriceUpdated events
type PriceUpdatedData struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Source string `json:"source"`
}

// EventType returns the event type for PriceUpdatedData
func (d *PriceUpdatedData) EventType() EventType {
	return PriceUpdated
}

// PortfolioCreatedData contains data for PortfolioCreated events
type PortfolioCreatedData struct {
	PortfolioID string `json:"portfolio_id"`
	UserID      string `json:"user_id"`
	InitialCash string `json:"initial_cash"`
}

// EventType returns the event type for PortfolioCreatedData
func (d *PortfolioCreatedData) EventType() EventType {
	return PortfolioCreated
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Pruned    int    `json:"pruned"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
