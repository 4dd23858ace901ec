package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

const (
	MinLeverage   = 1
	MaxLeverage   = 100
	MinSizeUsd    = 10
	UsdDecimals   = 6
	PriceDecimals = 18
)

// OrderForm is the ephemeral input staged before a submission. Numeric
// amounts are strings exactly as entered; they are parsed on validation.
type OrderForm struct {
	AssetIndex  int64     `json:"asset_index"`
	Side        Side      `json:"side"`
	Type        OrderType `json:"type"`
	SizeUsd     string    `json:"size_usd"`
	Leverage    int       `json:"leverage"`
	StopLoss    string    `json:"stop_loss,omitempty"`
	TakeProfit  string    `json:"take_profit,omitempty"`
	TargetPrice string    `json:"target_price,omitempty"`
}

func (f OrderForm) IsLong() bool {
	return f.Side == SideLong
}

// Validate applies the pre-submission rules. A failure here means no
// network call may be attempted.
func (f OrderForm) Validate() error {
	if f.Leverage < MinLeverage || f.Leverage > MaxLeverage {
		return fmt.Errorf("%w: leverage must be between %d and %d", ErrValidation, MinLeverage, MaxLeverage)
	}
	size, err := decimal.NewFromString(f.SizeUsd)
	if err != nil || size.LessThan(decimal.NewFromInt(MinSizeUsd)) {
		return fmt.Errorf("%w: position size must be at least $%d", ErrValidation, MinSizeUsd)
	}
	if f.Type == OrderTypeLimit {
		target, err := decimal.NewFromString(f.TargetPrice)
		if err != nil || !target.IsPositive() {
			return fmt.Errorf("%w: limit orders require a positive target price", ErrValidation)
		}
	}
	return nil
}

// SizeDecimal returns the parsed notional. Call after Validate.
func (f OrderForm) SizeDecimal() decimal.Decimal {
	return parseAmount(f.SizeUsd)
}

func (f OrderForm) StopLossDecimal() decimal.Decimal {
	return parseAmount(f.StopLoss)
}

func (f OrderForm) TakeProfitDecimal() decimal.Decimal {
	return parseAmount(f.TakeProfit)
}

func (f OrderForm) TargetPriceDecimal() decimal.Decimal {
	return parseAmount(f.TargetPrice)
}

// parseAmount treats empty or malformed input as zero, matching the
// optional stop-loss/take-profit fields where "" means unset.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
