// Package prices provides the spot price oracle the order book is built from.
package prices

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/bourse/internal/clientdata"
	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Quote sources
const (
	SourceFallback   = "fallback"
	SourceCache      = "cache"
	SourceManual     = "manual"
	SourceSimulation = "simulation"
)

// MaxSymbols caps how many symbols the oracle tracks. Symbols label the
// order and spread metrics, so the cap also bounds their series.
const MaxSymbols = 32

// quoteRecord is the msgpack form persisted in cache.db.
type quoteRecord struct {
	Symbol      string `msgpack:"symbol"`
	Name        string `msgpack:"name"`
	Price       string `msgpack:"price"`
	Change24h   string `msgpack:"change_24h"`
	Volume24h   string `msgpack:"volume_24h"`
	MarketCap   string `msgpack:"market_cap"`
	TimestampMs int64  `msgpack:"ts"`
}

// Oracle is an in-memory quote book. Reads never touch the database.
type Oracle struct {
	mu     sync.RWMutex
	quotes map[string]*domain.PriceQuote

	repo     *clientdata.Repository // nil disables persistence
	cacheTTL time.Duration
	events   *events.Manager
	now      func() time.Time
	log      zerolog.Logger
}

// NewOracle creates an oracle seeded with the fallback quotes.
func NewOracle(repo *clientdata.Repository, cacheTTL time.Duration, eventManager *events.Manager, log zerolog.Logger) *Oracle {
	o := &Oracle{
		quotes:   make(map[string]*domain.PriceQuote),
		repo:     repo,
		cacheTTL: cacheTTL,
		events:   eventManager,
		now:      time.Now,
		log:      log.With().Str("service", "prices").Logger(),
	}

	ts := o.now().UnixMilli()
	for _, f := range fallbackQuotes {
		o.quotes[f.Symbol] = &domain.PriceQuote{
			Symbol:      f.Symbol,
			Name:        f.Name,
			Price:       decimal.RequireFromString(f.Price),
			Change24h:   decimal.RequireFromString(f.Change24h),
			Volume24h:   decimal.RequireFromString(f.Volume24h),
			MarketCap:   decimal.RequireFromString(f.MarketCap),
			TimestampMs: ts,
		}
	}
	return o
}

// Get returns a copy of the quote for symbol, or nil when unknown.
func (o *Oracle) Get(symbol string) *domain.PriceQuote {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.quotes[domain.NormalizeSymbol(symbol)].Clone()
}

// All returns copies of every quote ordered by symbol.
func (o *Oracle) All() []domain.PriceQuote {
	o.mu.RLock()
	out := make([]domain.PriceQuote, 0, len(o.quotes))
	for _, q := range o.quotes {
		out = append(out, *q)
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols returns the known symbols ordered alphabetically.
func (o *Oracle) Symbols() []string {
	quotes := o.All()
	out := make([]string, len(quotes))
	for i, q := range quotes {
		out[i] = q.Symbol
	}
	return out
}

// Set updates or adds the spot price for symbol. New symbols are refused
// once MaxSymbols are listed.
func (o *Oracle) Set(symbol string, price decimal.Decimal, source string) (*domain.PriceQuote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.NewValidationError("symbol", "is required")
	}
	if !price.IsPositive() {
		return nil, domain.NewValidationError("price", "must be greater than zero")
	}

	o.mu.Lock()
	q, ok := o.quotes[symbol]
	if !ok {
		if len(o.quotes) >= MaxSymbols {
			o.mu.Unlock()
			return nil, domain.NewValidationError("symbol", "limit of %d symbols reached, %s is not listed", MaxSymbols, symbol)
		}
		q = &domain.PriceQuote{Symbol: symbol, Name: symbol}
		o.quotes[symbol] = q
	}
	q.Price = price
	q.TimestampMs = o.now().UnixMilli()
	snapshot := q.Clone()
	o.mu.Unlock()

	if err := o.persist(snapshot); err != nil {
		// The in-memory quote is authoritative; persistence only speeds up restarts
		o.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist quote")
	}

	if o.events != nil {
		o.events.EmitTyped("prices", &events.PriceUpdatedData{
			Symbol: symbol,
			Price:  domain.FormatAsset(price),
			Source: source,
		})
	}

	return snapshot, nil
}

// Restore loads persisted quotes from cache.db over the fallback seed.
// Expired rows are still used: a stale price beats the hard-coded seed.
func (o *Oracle) Restore() (int, error) {
	if o.repo == nil {
		return 0, nil
	}

	keys, err := o.repo.Keys(clientdata.TablePriceQuotes)
	if err != nil {
		return 0, fmt.Errorf("failed to list persisted quotes: %w", err)
	}

	restored := 0
	for _, key := range keys {
		var rec quoteRecord
		found, err := o.repo.Get(clientdata.TablePriceQuotes, key, &rec)
		if err != nil {
			o.log.Warn().Err(err).Str("symbol", key).Msg("Skipping unreadable quote")
			continue
		}
		if !found {
			continue
		}

		q, err := rec.toQuote()
		if err != nil {
			o.log.Warn().Err(err).Str("symbol", key).Msg("Skipping malformed quote")
			continue
		}

		o.mu.Lock()
		_, known := o.quotes[q.Symbol]
		if !known && len(o.quotes) >= MaxSymbols {
			o.mu.Unlock()
			o.log.Warn().Str("symbol", q.Symbol).Msg("Skipping quote beyond symbol limit")
			continue
		}
		o.quotes[q.Symbol] = q
		o.mu.Unlock()
		restored++
	}

	o.log.Info().Int("restored", restored).Msg("Restored persisted quotes")
	return restored, nil
}

// SetClock replaces the time source.
func (o *Oracle) SetClock(now func() time.Time) {
	o.now = now
}

func (o *Oracle) persist(q *domain.PriceQuote) error {
	if o.repo == nil {
		return nil
	}
	return o.repo.Store(clientdata.TablePriceQuotes, q.Symbol, quoteRecord{
		Symbol:      q.Symbol,
		Name:        q.Name,
		Price:       q.Price.String(),
		Change24h:   q.Change24h.String(),
		Volume24h:   q.Volume24h.String(),
		MarketCap:   q.MarketCap.String(),
		TimestampMs: q.TimestampMs,
	}, o.cacheTTL)
}

func (r quoteRecord) toQuote() (*domain.PriceQuote, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", r.Price, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("non-positive price %s", price)
	}
	return &domain.PriceQuote{
		Symbol:      r.Symbol,
		Name:        r.Name,
		Price:       price,
		Change24h:   decimalOrZero(r.Change24h),
		Volume24h:   decimalOrZero(r.Volume24h),
		MarketCap:   decimalOrZero(r.MarketCap),
		TimestampMs: r.TimestampMs,
	}, nil
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
