package orderbook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PriceSource is the oracle lookup the synthesizer depends on.
type PriceSource interface {
	Get(symbol string) *domain.PriceQuote
}

// Synthesizer builds and caches books.
type Synthesizer struct {
	prices PriceSource
	cache  Cache
	rand   RandomSource
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger

	// Serializes regeneration so concurrent misses produce one book.
	mu sync.Mutex
}

// NewSynthesizer wires a synthesizer. A non-positive ttl selects DefaultTTL.
func NewSynthesizer(prices PriceSource, cache Cache, rnd RandomSource, ttl time.Duration, log zerolog.Logger) *Synthesizer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Synthesizer{
		prices: prices,
		cache:  cache,
		rand:   rnd,
		ttl:    ttl,
		now:    time.Now,
		log:    log.With().Str("service", "orderbook").Logger(),
	}
}

// SetClock replaces the time source.
func (s *Synthesizer) SetClock(now func() time.Time) {
	s.now = now
}

// TTL returns the freshness window.
func (s *Synthesizer) TTL() time.Duration {
	return s.ttl
}

// Book returns the cached book for symbol while it is fresh, otherwise a
// newly generated one. Fails with ErrPriceUnavailable when the oracle has no
// quote.
func (s *Synthesizer) Book(ctx context.Context, symbol string) (*Book, error) {
	symbol = domain.NormalizeSymbol(symbol)

	if book, ok := s.cached(ctx, symbol); ok {
		metrics.ObserveBookLookup(true)
		return book, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have regenerated while we waited
	if book, ok := s.cached(ctx, symbol); ok {
		metrics.ObserveBookLookup(true)
		return book, nil
	}
	metrics.ObserveBookLookup(false)

	quote := s.prices.Get(symbol)
	if quote == nil {
		return nil, fmt.Errorf("no quote for %s: %w", symbol, domain.ErrPriceUnavailable)
	}

	book := s.generate(symbol, quote.Price, s.now())

	if err := s.cache.Set(ctx, book); err != nil {
		// The fresh book is still valid for this request
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache order book")
	}

	spread, _ := book.Spread.Float64()
	metrics.BookSpread.WithLabelValues(symbol).Set(spread)

	s.log.Debug().
		Str("symbol", symbol).
		Str("spot", quote.Price.String()).
		Str("spread", book.Spread.String()).
		Msg("Generated order book")

	return book, nil
}

func (s *Synthesizer) cached(ctx context.Context, symbol string) (*Book, bool) {
	book, err := s.cache.Get(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Order book cache read failed")
		return nil, false
	}
	if book == nil || !book.FreshAt(s.now(), s.ttl) {
		return nil, false
	}
	return book, true
}

// generate lays out Levels bids below and asks above spot, each step 0.1%
// further out, with random depth in [MinLevelAmount, MaxLevelAmount).
func (s *Synthesizer) generate(symbol string, spot decimal.Decimal, now time.Time) *Book {
	one := decimal.NewFromInt(1)
	bids := make([]Level, Levels)
	asks := make([]Level, Levels)

	for i := 0; i < Levels; i++ {
		offset := LevelStep.Mul(decimal.NewFromInt(int64(i + 1)))
		bidPrice := spot.Mul(one.Sub(offset))
		askPrice := spot.Mul(one.Add(offset))

		bidAmount := s.levelAmount()
		askAmount := s.levelAmount()

		bids[i] = Level{Price: bidPrice, Amount: bidAmount, Total: bidPrice.Mul(bidAmount), Timestamp: now}
		asks[i] = Level{Price: askPrice, Amount: askAmount, Total: askPrice.Mul(askAmount), Timestamp: now}
	}

	return &Book{
		Symbol:      symbol,
		Bids:        bids,
		Asks:        asks,
		Spread:      asks[0].Price.Sub(bids[0].Price),
		GeneratedAt: now,
	}
}

func (s *Synthesizer) levelAmount() decimal.Decimal {
	v := MinLevelAmount + s.rand.Float64()*(MaxLevelAmount-MinLevelAmount)
	return decimal.NewFromFloat(v).Truncate(domain.AssetPlaces)
}
