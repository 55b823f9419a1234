// Package handlers provides HTTP handlers for the price oracle.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/modules/prices"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Handler handles price HTTP requests
type Handler struct {
	oracle   *prices.Oracle
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new prices handler
func NewHandler(oracle *prices.Oracle, validate *validator.Validate, log zerolog.Logger) *Handler {
	return &Handler{
		oracle:   oracle,
		validate: validate,
		log:      log.With().Str("handler", "prices").Logger(),
	}
}

// QuoteResponse is the wire form of a quote
type QuoteResponse struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Change24h string `json:"change24h"`
	Volume24h string `json:"volume24h"`
	MarketCap string `json:"marketCap"`
	Timestamp int64  `json:"timestamp"`
}

type setPriceRequest struct {
	Price string `json:"price" validate:"required,numeric"`
}

// RegisterRoutes registers price routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/prices", func(r chi.Router) {
		r.Get("/", h.HandleGetPrices)
		r.Get("/{symbol}", h.HandleGetPrice)
		r.Put("/{symbol}", h.HandleSetPrice)
	})
}

// HandleGetPrices handles GET /api/prices
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	quotes := h.oracle.All()
	out := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		out[i] = toResponse(&quotes[i])
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleGetPrice handles GET /api/prices/{symbol}
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	q := h.oracle.Get(symbol)
	if q == nil {
		h.writeError(w, http.StatusNotFound, "price unavailable for "+domain.NormalizeSymbol(symbol))
		return
	}
	h.writeJSON(w, http.StatusOK, toResponse(q))
}

// HandleSetPrice handles PUT /api/prices/{symbol}
func (h *Handler) HandleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "price must be a decimal number")
		return
	}

	symbol := chi.URLParam(r, "symbol")
	if err := h.validate.Var(symbol, "alphanum,max=10"); err != nil {
		h.writeError(w, http.StatusBadRequest, "symbol must be at most 10 letters or digits")
		return
	}

	price, err := domain.ParsePositiveDecimal("price", req.Price)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.oracle.Set(symbol, price, prices.SourceManual)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Info().Str("symbol", q.Symbol).Str("price", q.Price.String()).Msg("Price set")
	h.writeJSON(w, http.StatusOK, toResponse(q))
}

func toResponse(q *domain.PriceQuote) QuoteResponse {
	return QuoteResponse{
		Symbol:    q.Symbol,
		Name:      q.Name,
		Price:     domain.FormatAsset(q.Price),
		Change24h: q.Change24h.StringFixed(2),
		Volume24h: domain.FormatFiat(q.Volume24h),
		MarketCap: domain.FormatFiat(q.MarketCap),
		Timestamp: q.TimestampMs,
	}
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
