package trading

import (
	"testing"

	"github.com/aristath/bourse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeSchedule_Tiers(t *testing.T) {
	fees := DefaultFeeSchedule()

	testCases := []struct {
		name      string
		side      domain.Side
		orderType domain.OrderType
		wantFee   string
		wantNet   string
	}{
		{name: "market buy pays taker", side: domain.SideBuy, orderType: domain.OrderTypeMarket, wantFee: "10.00", wantNet: "10010.00"},
		{name: "limit buy pays maker", side: domain.SideBuy, orderType: domain.OrderTypeLimit, wantFee: "8.00", wantNet: "10008.00"},
		{name: "market sell deducts", side: domain.SideSell, orderType: domain.OrderTypeMarket, wantFee: "10.00", wantNet: "9990.00"},
		{name: "limit sell deducts", side: domain.SideSell, orderType: domain.OrderTypeLimit, wantFee: "8.00", wantNet: "9992.00"},
		{name: "stop loss default rate", side: domain.SideSell, orderType: domain.OrderTypeStopLoss, wantFee: "10.00", wantNet: "9990.00"},
		{name: "take profit default rate", side: domain.SideSell, orderType: domain.OrderTypeTakeProfit, wantFee: "10.00", wantNet: "9990.00"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := fees.Compute(tc.side, tc.orderType, d("1"), d("10000"))
			assert.Equal(t, "10000.00", domain.FormatFiat(got.Gross))
			assert.Equal(t, tc.wantFee, domain.FormatFiat(got.Fee))
			assert.Equal(t, tc.wantNet, domain.FormatFiat(got.Net))
		})
	}
}

func TestFeeSchedule_Configured(t *testing.T) {
	fees := FeeSchedule{Taker: d("0.002"), Maker: d("0"), Default: d("0.003")}

	assert.True(t, fees.RateFor(domain.OrderTypeMarket).Equal(d("0.002")))
	assert.True(t, fees.RateFor(domain.OrderTypeLimit).IsZero())
	assert.True(t, fees.RateFor(domain.OrderTypeStopLoss).Equal(d("0.003")))
}

func TestPreviewFees(t *testing.T) {
	fees := DefaultFeeSchedule()

	got, err := fees.PreviewFees(domain.SideBuy, domain.OrderTypeLimit, d("0.5"), d("2500"))
	require.NoError(t, err)
	assert.Equal(t, "1250.00", domain.FormatFiat(got.Gross))
	assert.Equal(t, "1.00", domain.FormatFiat(got.Fee))
	assert.True(t, got.Rate.Equal(d("0.0008")))

	_, err = fees.PreviewFees(domain.SideBuy, domain.OrderTypeMarket, d("0"), d("2500"))
	assert.True(t, domain.IsValidation(err))
	_, err = fees.PreviewFees(domain.SideBuy, domain.OrderTypeMarket, d("1"), d("-1"))
	assert.True(t, domain.IsValidation(err))
}
