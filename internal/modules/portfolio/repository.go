package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/bourse/internal/database"
	"github.com/aristath/bourse/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Store is the persistence contract the trading service settles against.
type Store interface {
	GetPortfolio(ctx context.Context, userID string) (*Portfolio, error)
	GetHolding(ctx context.Context, portfolioID, symbol string) (*Holding, error)
	UpsertHolding(ctx context.Context, h Holding) error
	DeleteHolding(ctx context.Context, portfolioID, symbol string) error
	UpdateCash(ctx context.Context, portfolioID string, cash decimal.Decimal) error
}

// Repository handles portfolio and holding rows in ledger.db
type Repository struct {
	db  database.Executor
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db database.Executor, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx, log: r.log}
}

// Create opens a portfolio for userID
func (r *Repository) Create(ctx context.Context, userID string, initialCash decimal.Decimal) (*Portfolio, error) {
	now := time.Now()
	p := &Portfolio{
		ID:            uuid.NewString(),
		UserID:        userID,
		AvailableCash: initialCash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// A concurrent open for the same user loses here instead of on UNIQUE(user_id)
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolios (id, user_id, available_cash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		p.ID, p.UserID, p.AvailableCash.String(), now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrPortfolioExists)
	}

	r.log.Info().Str("user_id", userID).Str("portfolio_id", p.ID).Msg("Portfolio created")
	return p, nil
}

// GetPortfolio returns the portfolio for userID, or nil if none exists
func (r *Repository) GetPortfolio(ctx context.Context, userID string) (*Portfolio, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, available_cash, created_at, updated_at FROM portfolios WHERE user_id = ?`,
		userID,
	)

	var (
		p                    Portfolio
		cash                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.UserID, &cash, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	if p.AvailableCash, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("failed to parse available cash %q: %w", cash, err)
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

// UpdateCash sets the available cash
func (r *Repository) UpdateCash(ctx context.Context, portfolioID string, cash decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE portfolios SET available_cash = ?, updated_at = ? WHERE id = ?`,
		cash.String(), time.Now().Unix(), portfolioID,
	)
	if err != nil {
		return fmt.Errorf("failed to update cash: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update cash: portfolio %s does not exist", portfolioID)
	}
	return nil
}

const holdingColumns = `portfolio_id, symbol, amount, average_purchase_price, current_price, updated_at`

// GetHolding returns the holding, or nil if the portfolio has none in symbol
func (r *Repository) GetHolding(ctx context.Context, portfolioID, symbol string) (*Holding, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = ? AND symbol = ?`,
		portfolioID, symbol,
	)

	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

// ListHoldings returns every holding of a portfolio ordered by symbol
func (r *Repository) ListHoldings(ctx context.Context, portfolioID string) ([]Holding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = ? ORDER BY symbol`,
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// UpsertHolding inserts or replaces a holding
func (r *Repository) UpsertHolding(ctx context.Context, h Holding) error {
	updatedAt := h.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO holdings (`+holdingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, symbol) DO UPDATE SET
			amount = excluded.amount,
			average_purchase_price = excluded.average_purchase_price,
			current_price = excluded.current_price,
			updated_at = excluded.updated_at`,
		h.PortfolioID, h.Symbol,
		h.Amount.String(), h.AveragePurchasePrice.String(), h.CurrentPrice.String(),
		updatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// DeleteHolding removes a holding
func (r *Repository) DeleteHolding(ctx context.Context, portfolioID, symbol string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM holdings WHERE portfolio_id = ? AND symbol = ?`,
		portfolioID, symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", symbol, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHolding(s scanner) (*Holding, error) {
	var (
		h                           Holding
		amount, avgPrice, currPrice string
		updatedAt                   int64
	)
	if err := s.Scan(&h.PortfolioID, &h.Symbol, &amount, &avgPrice, &currPrice, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if h.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if h.AveragePurchasePrice, err = decimal.NewFromString(avgPrice); err != nil {
		return nil, fmt.Errorf("invalid average price %q: %w", avgPrice, err)
	}
	if h.CurrentPrice, err = decimal.NewFromString(currPrice); err != nil {
		return nil, fmt.Errorf("invalid current price %q: %w", currPrice, err)
	}
	h.UpdatedAt = time.Unix(updatedAt, 0)
	return &h, nil
}
