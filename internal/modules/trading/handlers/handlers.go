// Package handlers provides HTTP handlers for order execution and the
// synthetic order book.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/bourse/internal/domain"
	ledgerhandlers "github.com/aristath/bourse/internal/modules/ledger/handlers"
	"github.com/aristath/bourse/internal/modules/trading"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DefaultStreamInterval is how often the book stream pushes a snapshot.
const DefaultStreamInterval = time.Second

// Handler handles trading HTTP requests
type Handler struct {
	service        *trading.ExecutionService
	books          trading.BookSource
	validate       *validator.Validate
	streamInterval time.Duration
	log            zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(
	service *trading.ExecutionService,
	books trading.BookSource,
	validate *validator.Validate,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:        service,
		books:          books,
		validate:       validate,
		streamInterval: DefaultStreamInterval,
		log:            log.With().Str("handler", "trading").Logger(),
	}
}

// SetStreamInterval overrides the book stream cadence.
func (h *Handler) SetStreamInterval(d time.Duration) {
	h.streamInterval = d
}

// RegisterRoutes registers request/response trading routes relative to the
// trading router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/execute", h.HandleExecute)
	r.Post("/calculate-fees", h.HandleCalculateFees)
	r.Get("/orderbook/{symbol}", h.HandleGetOrderBook)
}

// RegisterStreamRoutes registers long-lived routes. They must be mounted
// outside the request timeout middleware.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/orderbook/{symbol}/stream", h.HandleStreamOrderBook)
}

type executeRequest struct {
	Symbol     string  `json:"symbol" validate:"required"`
	Type       string  `json:"type" validate:"required"`
	OrderType  string  `json:"orderType" validate:"required"`
	Amount     string  `json:"amount" validate:"required,numeric"`
	Price      *string `json:"price" validate:"omitempty,numeric"`
	StopLoss   *string `json:"stopLoss" validate:"omitempty,numeric"`
	TakeProfit *string `json:"takeProfit" validate:"omitempty,numeric"`
	// Ignored: slippage derives from the amount.
	Slippage *string `json:"slippage"`
}

// ExecuteResponse is the created transaction plus the fill details
type ExecuteResponse struct {
	ledgerhandlers.TransactionResponse
	ExecutionPrice  string `json:"executionPrice"`
	TradingFee      string `json:"tradingFee"`
	NetTotal        string `json:"netTotal"`
	SlippageApplied string `json:"slippageApplied"`
	ExecutedAmount  string `json:"executedAmount"`
	OrderStatus     string `json:"orderStatus"`
}

// HandleExecute handles POST /api/trading/execute
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(domain.UserIDHeader)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing "+domain.UserIDHeader+" header")
		return
	}

	var body executeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		h.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	req, err := buildOrderRequest(body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.service.Execute(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err, userID, req)
		return
	}

	h.writeJSON(w, http.StatusOK, ExecuteResponse{
		TransactionResponse: ledgerhandlers.NewTransactionResponse(st.Transaction),
		ExecutionPrice:      domain.FormatAsset(st.Result.ExecutionPrice),
		TradingFee:          domain.FormatFiat(st.Fees.Fee),
		NetTotal:            domain.FormatFiat(st.Fees.Net),
		SlippageApplied:     st.Result.Slippage.String(),
		ExecutedAmount:      domain.FormatAsset(st.Result.ExecutedAmount),
		OrderStatus:         string(st.Result.Status),
	})
}

func buildOrderRequest(body executeRequest) (*trading.OrderRequest, error) {
	side, err := domain.ParseSide(body.Type)
	if err != nil {
		return nil, err
	}
	orderType, err := domain.ParseOrderType(body.OrderType)
	if err != nil {
		return nil, err
	}
	amount, err := domain.ParsePositiveDecimal("amount", body.Amount)
	if err != nil {
		return nil, err
	}
	price, err := domain.ParseOptionalDecimal("price", body.Price)
	if err != nil {
		return nil, err
	}
	stopLoss, err := domain.ParseOptionalDecimal("stopLoss", body.StopLoss)
	if err != nil {
		return nil, err
	}
	takeProfit, err := domain.ParseOptionalDecimal("takeProfit", body.TakeProfit)
	if err != nil {
		return nil, err
	}
	kind, err := trading.NewOrderKind(orderType, price)
	if err != nil {
		return nil, err
	}

	return &trading.OrderRequest{
		Symbol:     domain.NormalizeSymbol(body.Symbol),
		Side:       side,
		Kind:       kind,
		Amount:     amount,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}, nil
}

type feesRequest struct {
	Amount    string `json:"amount" validate:"required,numeric"`
	Price     string `json:"price" validate:"required,numeric"`
	Type      string `json:"type" validate:"required"`
	OrderType string `json:"orderType" validate:"required"`
}

// FeesResponse is the fee preview
type FeesResponse struct {
	Subtotal   string `json:"subtotal"`
	FeeRate    string `json:"feeRate"`
	TradingFee string `json:"tradingFee"`
	NetTotal   string `json:"netTotal"`
}

// HandleCalculateFees handles POST /api/trading/calculate-fees
func (h *Handler) HandleCalculateFees(w http.ResponseWriter, r *http.Request) {
	var body feesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		h.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	side, err := domain.ParseSide(body.Type)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	orderType, err := domain.ParseOrderType(body.OrderType)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := domain.ParseDecimal("amount", body.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := domain.ParseDecimal("price", body.Price)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fees, err := h.service.Fees().PreviewFees(side, orderType, amount, price)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, FeesResponse{
		Subtotal:   domain.FormatFiat(fees.Gross),
		FeeRate:    fees.Rate.String(),
		TradingFee: domain.FormatFiat(fees.Fee),
		NetTotal:   domain.FormatFiat(fees.Net),
	})
}

// HandleGetOrderBook handles GET /api/trading/orderbook/{symbol}
func (h *Handler) HandleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))

	book, err := h.books.Book(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrPriceUnavailable) {
			h.writeError(w, http.StatusNotFound, "no price available for "+symbol)
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to build order book")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, NewOrderBookResponse(book))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, userID string, req *trading.OrderRequest) {
	switch {
	case errors.Is(err, domain.ErrPortfolioNotFound):
		h.writeError(w, http.StatusNotFound, "portfolio not found")
	case domain.IsValidation(err), domain.IsBusinessRule(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().
			Err(err).
			Str("user_id", userID).
			Str("symbol", req.Symbol).
			Str("side", req.Side.String()).
			Str("amount", req.Amount.String()).
			Msg("Order execution failed")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "numeric":
			return fe.Field() + " must be a decimal number"
		}
		return fe.Field() + " is invalid"
	}
	return "invalid request"
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
