package orderbook

import (
	"gonum.org/v1/gonum/floats"
)

// DepthProfile holds running liquidity totals from the touch outward.
type DepthProfile struct {
	BidCumulative []float64
	AskCumulative []float64
	BidVolume     float64
	AskVolume     float64
	Imbalance     float64 // (bid-ask)/(bid+ask), in [-1, 1]
}

// Depth computes cumulative amounts per side. Display only: settlement never
// reads these floats.
func Depth(b *Book) DepthProfile {
	bidAmounts := amounts(b.Bids)
	askAmounts := amounts(b.Asks)

	p := DepthProfile{
		BidCumulative: floats.CumSum(make([]float64, len(bidAmounts)), bidAmounts),
		AskCumulative: floats.CumSum(make([]float64, len(askAmounts)), askAmounts),
		BidVolume:     floats.Sum(bidAmounts),
		AskVolume:     floats.Sum(askAmounts),
	}
	if total := p.BidVolume + p.AskVolume; total > 0 {
		p.Imbalance = (p.BidVolume - p.AskVolume) / total
	}
	return p
}

func amounts(levels []Level) []float64 {
	out := make([]float64, len(levels))
	for i, l := range levels {
		out[i] = l.Amount.InexactFloat64()
	}
	return out
}
