package portfolio

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PriceSource values holdings.
type PriceSource interface {
	Get(symbol string) *domain.PriceQuote
}

// Service opens portfolios and builds valued views of them.
type Service struct {
	repo   *Repository
	prices PriceSource
	events *events.Manager
	log    zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(repo *Repository, prices PriceSource, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		prices: prices,
		events: eventManager,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// Open creates the portfolio for userID funded with initialCash.
func (s *Service) Open(ctx context.Context, userID string, initialCash decimal.Decimal) (*Portfolio, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.NewValidationError("userId", "is required")
	}
	if initialCash.IsNegative() {
		return nil, domain.NewValidationError("initialCash", "must not be negative")
	}

	existing, err := s.repo.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrPortfolioExists)
	}

	p, err := s.repo.Create(ctx, userID, initialCash)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.EmitTyped("portfolio", &events.PortfolioCreatedData{
			PortfolioID: p.ID,
			UserID:      userID,
			InitialCash: domain.FormatFiat(initialCash),
		})
	}
	return p, nil
}

// View returns the portfolio of userID with holdings valued at oracle prices.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	p, err := s.repo.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrPortfolioNotFound)
	}

	holdings, err := s.repo.ListHoldings(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	v := &View{
		Portfolio:     *p,
		Holdings:      make([]HoldingView, 0, len(holdings)),
		HoldingsValue: decimal.Zero,
		UnrealizedPnL: decimal.Zero,
	}
	for _, h := range holdings {
		hv := valueHolding(h, s.prices.Get(h.Symbol))
		v.Holdings = append(v.Holdings, hv)
		v.HoldingsValue = v.HoldingsValue.Add(hv.MarketValue)
		v.UnrealizedPnL = v.UnrealizedPnL.Add(hv.UnrealizedPnL)
	}
	v.TotalValue = p.AvailableCash.Add(v.HoldingsValue)
	return v, nil
}

// valueHolding marks h to quote. Without a quote the last fill price is used.
func valueHolding(h Holding, quote *domain.PriceQuote) HoldingView {
	hv := HoldingView{Holding: h}
	if quote != nil {
		hv.CurrentPrice = quote.Price
		hv.PriceAvailable = true
	}

	hv.MarketValue = h.Amount.Mul(hv.CurrentPrice)
	hv.CostBasis = h.Amount.Mul(h.AveragePurchasePrice)
	hv.UnrealizedPnL = hv.MarketValue.Sub(hv.CostBasis)
	if hv.CostBasis.IsPositive() {
		hv.UnrealizedPnLPct = hv.UnrealizedPnL.Div(hv.CostBasis).Mul(decimal.NewFromInt(100))
	}
	return hv
}
