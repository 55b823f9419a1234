package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyBuy_CostBasisRoundTrip(t *testing.T) {
	now := time.Now()

	first := ApplyBuy(nil, "p1", "BTC", d("1"), d("100"), now)
	assert.True(t, first.Amount.Equal(d("1")))
	assert.True(t, first.AveragePurchasePrice.Equal(d("100")))

	second := ApplyBuy(&first, "p1", "BTC", d("1"), d("200"), now)
	assert.True(t, second.Amount.Equal(d("2")))
	assert.True(t, second.AveragePurchasePrice.Equal(d("150")), "got %s", second.AveragePurchasePrice)

	afterSell, dust := ApplySell(second, d("0.5"), d("180"), now)
	assert.False(t, dust)
	assert.True(t, afterSell.Amount.Equal(d("1.5")))
	assert.True(t, afterSell.AveragePurchasePrice.Equal(d("150")))
	assert.True(t, afterSell.CurrentPrice.Equal(d("180")))
}

func TestApplyBuy_ZeroAmountHoldingResetsBasis(t *testing.T) {
	empty := &Holding{Symbol: "ETH", Amount: decimal.Zero, AveragePurchasePrice: d("999")}

	h := ApplyBuy(empty, "p1", "ETH", d("2"), d("2500"), time.Now())
	assert.True(t, h.AveragePurchasePrice.Equal(d("2500")))
}

func TestApplySell_Dust(t *testing.T) {
	testCases := []struct {
		name     string
		amount   string
		sell     string
		wantDust bool
	}{
		{name: "exact close", amount: "0.5", sell: "0.5", wantDust: true},
		{name: "residue at threshold", amount: "0.50000001", sell: "0.5", wantDust: true},
		{name: "residue above threshold", amount: "0.50000002", sell: "0.5", wantDust: false},
		{name: "partial", amount: "2", sell: "1", wantDust: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := Holding{Symbol: "BTC", Amount: d(tc.amount), AveragePurchasePrice: d("100")}
			_, dust := ApplySell(h, d(tc.sell), d("100"), time.Now())
			assert.Equal(t, tc.wantDust, dust)
		})
	}
}
