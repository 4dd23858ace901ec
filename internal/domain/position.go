package domain

import "github.com/shopspring/decimal"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// OpenPosition is an immutable on-chain record of an open position.
// Monetary fields are decoded from fixed-point integers into human units
// (6 decimals for USD sizes, 18 decimals for prices).
type OpenPosition struct {
	Trader           string
	ID               uint64
	AssetIndex       int64
	IsLong           bool
	Leverage         int
	OpenPrice        decimal.Decimal
	SizeUsd          decimal.Decimal
	Timestamp        int64
	SLBucketID       uint64
	TPBucketID       uint64
	LiqBucketID      uint64
	StopLossPrice    decimal.Decimal
	TakeProfitPrice  decimal.Decimal
	LiquidationPrice decimal.Decimal
}

func (p OpenPosition) Side() Side {
	if p.IsLong {
		return SideLong
	}
	return SideShort
}

// OpenOrder is a pending limit order record.
type OpenOrder struct {
	Trader        string
	ID            uint64
	AssetIndex    int64
	IsLong        bool
	Leverage      int
	OrderPrice    decimal.Decimal
	SizeUsd       decimal.Decimal
	Timestamp     int64
	StopLoss      decimal.Decimal
	TakeProfit    decimal.Decimal
	LimitBucketID uint64
}

func (o OpenOrder) Side() Side {
	if o.IsLong {
		return SideLong
	}
	return SideShort
}

// ClosedPosition is a historical record. It carries no id; records are
// identified by their position within the sequence returned by the chain.
type ClosedPosition struct {
	AssetIndex     int64
	IsLong         bool
	Leverage       int
	OpenPrice      decimal.Decimal
	ClosePrice     decimal.Decimal
	SizeUsd        decimal.Decimal
	OpenTimestamp  int64
	CloseTimestamp int64
	Pnl            decimal.Decimal
}

// PnL holds fields derived from an open position and a live price.
type PnL struct {
	Usd float64 `json:"usd"`
	Pct float64 `json:"pct"`
}

// ComputePnL derives unrealized PnL for an open position against a live
// price. While price data is still warming up either price may be zero;
// the result is then zero rather than NaN or infinity.
func ComputePnL(p OpenPosition, livePrice float64) PnL {
	openPrice := p.OpenPrice.InexactFloat64()
	sizeUsd := p.SizeUsd.InexactFloat64()
	if livePrice == 0 || openPrice == 0 {
		return PnL{}
	}

	dir := 1.0
	if !p.IsLong {
		dir = -1.0
	}
	usd := sizeUsd * ((livePrice/openPrice - 1) * dir)

	var pct float64
	if p.Leverage > 0 && sizeUsd != 0 {
		pct = usd / (sizeUsd / float64(p.Leverage)) * 100
	}
	return PnL{Usd: usd, Pct: pct}
}

// TriggerDistancePct is the relative distance from the live price to a
// trigger price (stop-loss, take-profit or liquidation), in percent.
// Zero when either price is zero or the trigger is unset.
func TriggerDistancePct(trigger decimal.Decimal, livePrice float64) float64 {
	t := trigger.InexactFloat64()
	if t == 0 || livePrice == 0 {
		return 0
	}
	return (t/livePrice - 1) * 100
}
