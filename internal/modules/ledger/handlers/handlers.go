// Package handlers provides HTTP handlers for the transaction ledger.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 500

// Handler handles ledger HTTP requests
type Handler struct {
	repo *ledger.Repository
	log  zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(repo *ledger.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "ledger").Logger(),
	}
}

// RegisterRoutes registers transaction history routes relative to the
// trading router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/transactions", h.HandleListTransactions)
	r.Get("/transactions/{id}", h.HandleGetTransaction)
}

// TransactionResponse is the wire form of a ledger entry
type TransactionResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"`
	OrderType  string  `json:"orderType"`
	Status     string  `json:"status"`
	Amount     string  `json:"amount"`
	Price      string  `json:"price"`
	Total      string  `json:"total"`
	Fee        string  `json:"fee"`
	Slippage   string  `json:"slippage"`
	StopLoss   *string `json:"stopLoss,omitempty"`
	TakeProfit *string `json:"takeProfit,omitempty"`
	CreatedAt  string  `json:"createdAt"`
}

// NewTransactionResponse formats t for the wire
func NewTransactionResponse(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:         t.ID,
		UserID:     t.UserID,
		Symbol:     t.Symbol,
		Type:       t.Side.String(),
		OrderType:  string(t.OrderType),
		Status:     string(t.Status),
		Amount:     domain.FormatAsset(t.Amount),
		Price:      domain.FormatAsset(t.Price),
		Total:      domain.FormatFiat(t.Total),
		Fee:        domain.FormatFiat(t.Fee),
		Slippage:   t.Slippage.String(),
		StopLoss:   domain.FormatOptional(t.StopLoss),
		TakeProfit: domain.FormatOptional(t.TakeProfit),
		CreatedAt:  t.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// HandleListTransactions handles GET /api/trading/transactions
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(domain.UserIDHeader)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing "+domain.UserIDHeader+" header")
		return
	}

	limit := ledger.DefaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, MaxListLimit)
	}
	symbol := domain.NormalizeSymbol(r.URL.Query().Get("symbol"))

	transactions, err := h.repo.ListByUser(r.Context(), userID, symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		resp = append(resp, NewTransactionResponse(&transactions[i]))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": resp,
		"count":        len(resp),
	})
}

// HandleGetTransaction handles GET /api/trading/transactions/{id}
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(domain.UserIDHeader)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing "+domain.UserIDHeader+" header")
		return
	}

	id := chi.URLParam(r, "id")
	t, err := h.repo.GetByID(r.Context(), userID, id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to get transaction")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if t == nil {
		h.writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	h.writeJSON(w, http.StatusOK, NewTransactionResponse(t))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"message": message})
}
