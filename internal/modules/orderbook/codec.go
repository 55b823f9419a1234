package orderbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// bookRecord is the serialized form used by the redis and sqlite caches.
type bookRecord struct {
	Symbol      string        `msgpack:"symbol"`
	Bids        []levelRecord `msgpack:"bids"`
	Asks        []levelRecord `msgpack:"asks"`
	Spread      string        `msgpack:"spread"`
	GeneratedAt int64         `msgpack:"generated_at"` // unix millis
}

type levelRecord struct {
	Price  string `msgpack:"p"`
	Amount string `msgpack:"a"`
}

func toRecord(b *Book) bookRecord {
	rec := bookRecord{
		Symbol:      b.Symbol,
		Bids:        make([]levelRecord, len(b.Bids)),
		Asks:        make([]levelRecord, len(b.Asks)),
		Spread:      b.Spread.String(),
		GeneratedAt: b.GeneratedAt.UnixMilli(),
	}
	for i, l := range b.Bids {
		rec.Bids[i] = levelRecord{Price: l.Price.String(), Amount: l.Amount.String()}
	}
	for i, l := range b.Asks {
		rec.Asks[i] = levelRecord{Price: l.Price.String(), Amount: l.Amount.String()}
	}
	return rec
}

func fromRecord(rec bookRecord) (*Book, error) {
	ts := time.UnixMilli(rec.GeneratedAt)

	bids, err := decodeLevels(rec.Bids, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bids for %s: %w", rec.Symbol, err)
	}
	asks, err := decodeLevels(rec.Asks, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode asks for %s: %w", rec.Symbol, err)
	}
	spread, err := decimal.NewFromString(rec.Spread)
	if err != nil {
		return nil, fmt.Errorf("failed to decode spread for %s: %w", rec.Symbol, err)
	}

	return &Book{
		Symbol:      rec.Symbol,
		Bids:        bids,
		Asks:        asks,
		Spread:      spread,
		GeneratedAt: ts,
	}, nil
}

func decodeLevels(recs []levelRecord, ts time.Time) ([]Level, error) {
	levels := make([]Level, len(recs))
	for i, r := range recs {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, err
		}
		levels[i] = Level{Price: price, Amount: amount, Total: price.Mul(amount), Timestamp: ts}
	}
	return levels, nil
}
