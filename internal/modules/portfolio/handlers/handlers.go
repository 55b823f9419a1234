// Package handlers provides HTTP handlers for portfolios.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service  *portfolio.Service
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, validate *validator.Validate, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validate,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)
		r.Post("/", h.HandleOpenPortfolio)
	})
}

type openRequest struct {
	InitialCash string `json:"initialCash" validate:"required,numeric"`
}

// HoldingResponse is the wire form of a valued holding
type HoldingResponse struct {
	Symbol               string `json:"symbol"`
	Amount               string `json:"amount"`
	AveragePurchasePrice string `json:"averagePurchasePrice"`
	CurrentPrice         string `json:"currentPrice"`
	MarketValue          string `json:"marketValue"`
	UnrealizedPnL        string `json:"unrealizedPnl"`
	UnrealizedPnLPct     string `json:"unrealizedPnlPercent"`
}

// PortfolioResponse is the wire form of a portfolio view
type PortfolioResponse struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	AvailableCash string            `json:"availableCash"`
	HoldingsValue string            `json:"holdingsValue"`
	TotalValue    string            `json:"totalValue"`
	UnrealizedPnL string            `json:"unrealizedPnl"`
	Holdings      []HoldingResponse `json:"holdings"`
}

// HandleOpenPortfolio handles POST /api/portfolio
func (h *Handler) HandleOpenPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(domain.UserIDHeader)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing "+domain.UserIDHeader+" header")
		return
	}

	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "initialCash must be a decimal number")
		return
	}

	cash, err := decimal.NewFromString(req.InitialCash)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "initialCash must be a decimal number")
		return
	}

	p, err := h.service.Open(r.Context(), userID, cash)
	if err != nil {
		h.writeServiceError(w, err, userID)
		return
	}

	h.writeJSON(w, http.StatusCreated, PortfolioResponse{
		ID:            p.ID,
		UserID:        p.UserID,
		AvailableCash: domain.FormatFiat(p.AvailableCash),
		HoldingsValue: domain.FormatFiat(decimal.Zero),
		TotalValue:    domain.FormatFiat(p.AvailableCash),
		UnrealizedPnL: domain.FormatFiat(decimal.Zero),
		Holdings:      []HoldingResponse{},
	})
}

// HandleGetPortfolio handles GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(domain.UserIDHeader)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing "+domain.UserIDHeader+" header")
		return
	}

	v, err := h.service.View(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, userID)
		return
	}

	resp := PortfolioResponse{
		ID:            v.ID,
		UserID:        v.UserID,
		AvailableCash: domain.FormatFiat(v.AvailableCash),
		HoldingsValue: domain.FormatFiat(v.HoldingsValue),
		TotalValue:    domain.FormatFiat(v.TotalValue),
		UnrealizedPnL: domain.FormatFiat(v.UnrealizedPnL),
		Holdings:      make([]HoldingResponse, 0, len(v.Holdings)),
	}
	for _, hv := range v.Holdings {
		resp.Holdings = append(resp.Holdings, HoldingResponse{
			Symbol:               hv.Symbol,
			Amount:               domain.FormatAsset(hv.Amount),
			AveragePurchasePrice: domain.FormatAsset(hv.AveragePurchasePrice),
			CurrentPrice:         domain.FormatAsset(hv.CurrentPrice),
			MarketValue:          domain.FormatFiat(hv.MarketValue),
			UnrealizedPnL:        domain.FormatFiat(hv.UnrealizedPnL),
			UnrealizedPnLPct:     hv.UnrealizedPnLPct.StringFixed(2),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, domain.ErrPortfolioNotFound):
		h.writeError(w, http.StatusNotFound, "portfolio not found")
	case errors.Is(err, domain.ErrPortfolioExists):
		h.writeError(w, http.StatusConflict, "portfolio already exists")
	case domain.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Str("user_id", userID).Msg("Portfolio request failed")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
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
