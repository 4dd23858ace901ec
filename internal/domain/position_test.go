package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func position(isLong bool, openPrice, sizeUsd string, leverage int) OpenPosition {
	return OpenPosition{
		IsLong:    isLong,
		OpenPrice: decimal.RequireFromString(openPrice),
		SizeUsd:   decimal.RequireFromString(sizeUsd),
		Leverage:  leverage,
	}
}

func TestComputePnL_Long(t *testing.T) {
	p := position(true, "100", "1000", 10)

	pnl := ComputePnL(p, 110)
	assert.InDelta(t, 100, pnl.Usd, 1e-9)  // 1000 * (1.1 - 1)
	assert.InDelta(t, 100, pnl.Pct, 1e-9)  // 100 / (1000/10) * 100
}

func TestComputePnL_Short(t *testing.T) {
	p := position(false, "100", "1000", 5)

	pnl := ComputePnL(p, 110)
	assert.InDelta(t, -100, pnl.Usd, 1e-9)
	assert.InDelta(t, -50, pnl.Pct, 1e-9)
}

func TestComputePnL_ZeroGuard(t *testing.T) {
	// while price data warms up either side can be zero; the result must
	// be zero, never NaN or infinity
	cases := []struct {
		name string
		pos  OpenPosition
		live float64
	}{
		{"zero live price", position(true, "100", "1000", 10), 0},
		{"zero open price", position(true, "0", "1000", 10), 110},
		{"both zero", position(false, "0", "1000", 10), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pnl := ComputePnL(tc.pos, tc.live)
			assert.Zero(t, pnl.Usd)
			assert.Zero(t, pnl.Pct)
			assert.False(t, math.IsNaN(pnl.Usd) || math.IsInf(pnl.Usd, 0))
		})
	}
}

func TestTriggerDistancePct(t *testing.T) {
	d := TriggerDistancePct(decimal.RequireFromString("90"), 100)
	assert.InDelta(t, -10, d, 1e-9)

	assert.Zero(t, TriggerDistancePct(decimal.Zero, 100))
	assert.Zero(t, TriggerDistancePct(decimal.RequireFromString("90"), 0))
}

func TestOrderFormValidate(t *testing.T) {
	valid := OrderForm{
		AssetIndex: 1,
		Side:       SideLong,
		Type:       OrderTypeMarket,
		SizeUsd:    "25",
		Leverage:   10,
	}
	require.NoError(t, valid.Validate())

	t.Run("leverage out of range", func(t *testing.T) {
		f := valid
		f.Leverage = 0
		assert.ErrorIs(t, f.Validate(), ErrValidation)
		f.Leverage = 101
		assert.ErrorIs(t, f.Validate(), ErrValidation)
	})

	t.Run("size below minimum", func(t *testing.T) {
		f := valid
		f.SizeUsd = "9.99"
		assert.ErrorIs(t, f.Validate(), ErrValidation)
	})

	t.Run("size not a number", func(t *testing.T) {
		f := valid
		f.SizeUsd = "ten dollars"
		assert.ErrorIs(t, f.Validate(), ErrValidation)
	})

	t.Run("limit requires positive target", func(t *testing.T) {
		f := valid
		f.Type = OrderTypeLimit
		assert.ErrorIs(t, f.Validate(), ErrValidation)

		f.TargetPrice = "0"
		assert.ErrorIs(t, f.Validate(), ErrValidation)

		f.TargetPrice = "105.5"
		assert.NoError(t, f.Validate())
	})
}

func TestOrderFormAmounts(t *testing.T) {
	f := OrderForm{SizeUsd: "25.5", StopLoss: "", TakeProfit: "bogus", TargetPrice: "101"}

	assert.True(t, f.SizeDecimal().Equal(decimal.RequireFromString("25.5")))
	assert.True(t, f.StopLossDecimal().IsZero())
	assert.True(t, f.TakeProfitDecimal().IsZero())
	assert.True(t, f.TargetPriceDecimal().Equal(decimal.RequireFromString("101")))
}
