package chain

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vitos/perps_sync/internal/domain"
)

// Wire records mirror the contract return tuples. uint256 values arrive as
// decimal strings; monetary fields are fixed-point integers (6 decimals for
// USD sizes, 18 for prices) and are descaled into human units on decode.

type openPositionRecord struct {
	Trader           string `json:"trader"`
	ID               string `json:"id"`
	AssetIndex       string `json:"assetIndex"`
	IsLong           bool   `json:"isLong"`
	Leverage         string `json:"leverage"`
	OpenPrice        string `json:"openPrice"`
	SizeUsd          string `json:"sizeUsd"`
	Timestamp        string `json:"timestamp"`
	SLBucketID       string `json:"slBucketId"`
	TPBucketID       string `json:"tpBucketId"`
	LiqBucketID      string `json:"liqBucketId"`
	StopLossPrice    string `json:"stopLossPrice"`
	TakeProfitPrice  string `json:"takeProfitPrice"`
	LiquidationPrice string `json:"liquidationPrice"`
}

type openOrderRecord struct {
	Trader        string `json:"trader"`
	ID            string `json:"id"`
	AssetIndex    string `json:"assetIndex"`
	IsLong        bool   `json:"isLong"`
	Leverage      string `json:"leverage"`
	OrderPrice    string `json:"orderPrice"`
	SizeUsd       string `json:"sizeUsd"`
	Timestamp     string `json:"timestamp"`
	StopLoss      string `json:"stopLoss"`
	TakeProfit    string `json:"takeProfit"`
	LimitBucketID string `json:"limitBucketId"`
}

type closedPositionRecord struct {
	AssetIndex     string `json:"assetIndex"`
	IsLong         bool   `json:"isLong"`
	Leverage       string `json:"leverage"`
	OpenPrice      string `json:"openPrice"`
	ClosePrice     string `json:"closePrice"`
	SizeUsd        string `json:"sizeUsd"`
	OpenTimestamp  string `json:"openTimestamp"`
	CloseTimestamp string `json:"closeTimestamp"`
	Pnl            string `json:"pnl"`
}

func (g *Gateway) GetOpenIDs(ctx context.Context, trader string) ([]uint64, error) {
	return g.getIDs(ctx, "getUserOpenIds", trader)
}

func (g *Gateway) GetOrderIDs(ctx context.Context, trader string) ([]uint64, error) {
	return g.getIDs(ctx, "getUserOrderIds", trader)
}

func (g *Gateway) getIDs(ctx context.Context, function, trader string) ([]uint64, error) {
	var raw []string
	if err := g.call(ctx, function, []any{trader}, &raw); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad id %q: %w", function, s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (g *Gateway) GetOpenByID(ctx context.Context, id uint64) (*domain.OpenPosition, error) {
	var rec openPositionRecord
	if err := g.call(ctx, "getOpenById", []any{strconv.FormatUint(id, 10)}, &rec); err != nil {
		return nil, err
	}
	return rec.toDomain()
}

func (g *Gateway) GetOrderByID(ctx context.Context, id uint64) (*domain.OpenOrder, error) {
	var rec openOrderRecord
	if err := g.call(ctx, "getOrderById", []any{strconv.FormatUint(id, 10)}, &rec); err != nil {
		return nil, err
	}
	return rec.toDomain()
}

func (g *Gateway) GetClosed(ctx context.Context, trader string) ([]domain.ClosedPosition, error) {
	var recs []closedPositionRecord
	if err := g.call(ctx, "getUserCloseds", []any{trader}, &recs); err != nil {
		return nil, err
	}
	closed := make([]domain.ClosedPosition, 0, len(recs))
	for i, rec := range recs {
		c, err := rec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("closed record %d: %w", i, err)
		}
		closed = append(closed, c)
	}
	return closed, nil
}

func (r openPositionRecord) toDomain() (*domain.OpenPosition, error) {
	id, err := strconv.ParseUint(r.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("open position: bad id %q: %w", r.ID, err)
	}
	return &domain.OpenPosition{
		Trader:           r.Trader,
		ID:               id,
		AssetIndex:       parseInt(r.AssetIndex),
		IsLong:           r.IsLong,
		Leverage:         int(parseInt(r.Leverage)),
		OpenPrice:        fromFixed(r.OpenPrice, domain.PriceDecimals),
		SizeUsd:          fromFixed(r.SizeUsd, domain.UsdDecimals),
		Timestamp:        parseInt(r.Timestamp),
		SLBucketID:       parseUint(r.SLBucketID),
		TPBucketID:       parseUint(r.TPBucketID),
		LiqBucketID:      parseUint(r.LiqBucketID),
		StopLossPrice:    fromFixed(r.StopLossPrice, domain.PriceDecimals),
		TakeProfitPrice:  fromFixed(r.TakeProfitPrice, domain.PriceDecimals),
		LiquidationPrice: fromFixed(r.LiquidationPrice, domain.PriceDecimals),
	}, nil
}

func (r openOrderRecord) toDomain() (*domain.OpenOrder, error) {
	id, err := strconv.ParseUint(r.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("open order: bad id %q: %w", r.ID, err)
	}
	return &domain.OpenOrder{
		Trader:        r.Trader,
		ID:            id,
		AssetIndex:    parseInt(r.AssetIndex),
		IsLong:        r.IsLong,
		Leverage:      int(parseInt(r.Leverage)),
		OrderPrice:    fromFixed(r.OrderPrice, domain.PriceDecimals),
		SizeUsd:       fromFixed(r.SizeUsd, domain.UsdDecimals),
		Timestamp:     parseInt(r.Timestamp),
		StopLoss:      fromFixed(r.StopLoss, domain.PriceDecimals),
		TakeProfit:    fromFixed(r.TakeProfit, domain.PriceDecimals),
		LimitBucketID: parseUint(r.LimitBucketID),
	}, nil
}

func (r closedPositionRecord) toDomain() (domain.ClosedPosition, error) {
	return domain.ClosedPosition{
		AssetIndex:     parseInt(r.AssetIndex),
		IsLong:         r.IsLong,
		Leverage:       int(parseInt(r.Leverage)),
		OpenPrice:      fromFixed(r.OpenPrice, domain.PriceDecimals),
		ClosePrice:     fromFixed(r.ClosePrice, domain.PriceDecimals),
		SizeUsd:        fromFixed(r.SizeUsd, domain.UsdDecimals),
		OpenTimestamp:  parseInt(r.OpenTimestamp),
		CloseTimestamp: parseInt(r.CloseTimestamp),
		Pnl:            fromFixed(r.Pnl, domain.UsdDecimals),
	}, nil
}

// fromFixed descales a fixed-point integer string. Malformed values decode
// to zero: a single bad field must not drop the whole record.
func fromFixed(s string, decimals int32) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(-decimals)
}

// toFixed rescales a human-unit amount into a fixed-point integer string.
func toFixed(d decimal.Decimal, decimals int32) string {
	return d.Shift(decimals).Truncate(0).String()
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}
