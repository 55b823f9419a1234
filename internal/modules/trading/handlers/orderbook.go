package handlers

import (
	"github.com/aristath/bourse/internal/domain"
	"github.com/aristath/bourse/internal/modules/orderbook"
)

// LevelResponse is one book level on the wire
type LevelResponse struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
	Total  string `json:"total"`
}

// DepthResponse carries cumulative liquidity from the touch outward
type DepthResponse struct {
	BidCumulative []float64 `json:"bidCumulative"`
	AskCumulative []float64 `json:"askCumulative"`
	Imbalance     float64   `json:"imbalance"`
}

// OrderBookResponse is the book snapshot returned to clients
type OrderBookResponse struct {
	Symbol    string          `json:"symbol"`
	Bids      []LevelResponse `json:"bids"`
	Asks      []LevelResponse `json:"asks"`
	Spread    string          `json:"spread"`
	Mid       string          `json:"mid"`
	Depth     DepthResponse   `json:"depth"`
	Timestamp int64           `json:"timestamp"`
}

// NewOrderBookResponse formats b with 8-decimal strings
func NewOrderBookResponse(b *orderbook.Book) OrderBookResponse {
	depth := orderbook.Depth(b)
	return OrderBookResponse{
		Symbol: b.Symbol,
		Bids:   levels(b.Bids),
		Asks:   levels(b.Asks),
		Spread: domain.FormatAsset(b.Spread),
		Mid:    domain.FormatAsset(b.Mid()),
		Depth: DepthResponse{
			BidCumulative: depth.BidCumulative,
			AskCumulative: depth.AskCumulative,
			Imbalance:     depth.Imbalance,
		},
		Timestamp: b.GeneratedAt.UnixMilli(),
	}
}

func levels(in []orderbook.Level) []LevelResponse {
	out := make([]LevelResponse, len(in))
	for i, l := range in {
		out[i] = LevelResponse{
			Price:  domain.FormatAsset(l.Price),
			Amount: domain.FormatAsset(l.Amount),
			Total:  domain.FormatAsset(l.Total),
		}
	}
	return out
}
