package ledger

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

// DefaultListLimit caps history queries without an explicit limit.
const DefaultListLimit = 100

// Store is the append contract used during settlement.
type Store interface {
	Create(ctx context.Context, t *Transaction) error
}

// Repository handles the transactions table in ledger.db
type Repository struct {
	db  database.Executor
	log zerolog.Logger
}

// transactionColumns must match scanTransaction
const transactionColumns = `id, user_id, portfolio_id, symbol, side, order_type, status, amount, price, total, fee, slippage, stop_loss, take_profit, created_at`

// NewRepository creates a new ledger repository
func NewRepository(db database.Executor, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx, log: r.log}
}

// Create inserts t, assigning ID and CreatedAt when unset.
func (r *Repository) Create(ctx context.Context, t *Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.PortfolioID, t.Symbol, string(t.Side), string(t.OrderType), string(t.Status),
		t.Amount.String(), t.Price.String(), t.Total.String(), t.Fee.String(), t.Slippage.String(),
		nullableDecimal(t.StopLoss), nullableDecimal(t.TakeProfit),
		t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	r.log.Debug().
		Str("id", t.ID).
		Str("symbol", t.Symbol).
		Str("side", t.Side.String()).
		Str("status", string(t.Status)).
		Msg("Transaction recorded")
	return nil
}

// GetByID returns the transaction id owned by userID, or nil if there is none
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListByUser returns the newest transactions of userID first. An empty symbol
// matches every symbol; limit <= 0 uses DefaultListLimit.
func (r *Repository) ListByUser(ctx context.Context, userID, symbol string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []interface{}{userID}
	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (*Transaction, error) {
	var (
		t                                   Transaction
		side, orderType, status             string
		amount, price, total, fee, slippage string
		stopLoss, takeProfit                sql.NullString
		createdAt                           int64
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.PortfolioID, &t.Symbol, &side, &orderType, &status,
		&amount, &price, &total, &fee, &slippage, &stopLoss, &takeProfit, &createdAt); err != nil {
		return nil, err
	}

	t.Side = domain.Side(side)
	t.OrderType = domain.OrderType(orderType)
	t.Status = Status(status)
	t.CreatedAt = time.UnixMilli(createdAt)

	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&t.Amount, amount}, {&t.Price, price}, {&t.Total, total}, {&t.Fee, fee}, {&t.Slippage, slippage},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q in transaction %s: %w", f.raw, t.ID, err)
		}
		*f.dst = d
	}

	var err error
	if t.StopLoss, err = parseNullable(stopLoss); err != nil {
		return nil, err
	}
	if t.TakeProfit, err = parseNullable(takeProfit); err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullable(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", s.String, err)
	}
	return &d, nil
}
