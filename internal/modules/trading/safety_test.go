package trading

import (
	"testing"

	"github.com/aristath/bourse/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateOrderAmount(t *testing.T) {
	testCases := []struct {
		notional string
		wantErr  error
	}{
		{notional: "0.99", wantErr: domain.ErrOrderTooSmall},
		{notional: "1", wantErr: nil},
		{notional: "450.945495", wantErr: nil},
		{notional: "1000000", wantErr: nil},
		{notional: "1000000.01", wantErr: domain.ErrOrderTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.notional, func(t *testing.T) {
			err := ValidateOrderAmount(d(tc.notional))
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.True(t, domain.IsBusinessRule(err))
		})
	}
}

func TestValidateStopLoss(t *testing.T) {
	testCases := []struct {
		name    string
		side    domain.Side
		stop    string
		wantErr bool
	}{
		{name: "buy below current", side: domain.SideBuy, stop: "44000"},
		{name: "buy at current", side: domain.SideBuy, stop: "45000", wantErr: true},
		{name: "buy above current", side: domain.SideBuy, stop: "46000", wantErr: true},
		{name: "sell above current", side: domain.SideSell, stop: "46000"},
		{name: "sell at current", side: domain.SideSell, stop: "45000", wantErr: true},
		{name: "sell below current", side: domain.SideSell, stop: "44000", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStopLoss(d("45000"), d(tc.stop), tc.side)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidStopLoss)
				return
			}
			assert.NoError(t, err)
		})
	}
}
