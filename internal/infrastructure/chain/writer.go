package chain

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vitos/perps_sync/internal/domain"
)

// Write boundary. Argument tuples match the contract functions exactly:
// sizes are submitted as 6-decimal fixed point, prices as 18-decimal.

func (g *Gateway) OpenPosition(ctx context.Context, assetIndex int64, proof string, isLong bool, leverage int, sizeUsd, slPrice, tpPrice decimal.Decimal) (string, error) {
	return g.send(ctx, "openPosition", []any{
		strconv.FormatInt(assetIndex, 10),
		proof,
		isLong,
		strconv.Itoa(leverage),
		toFixed(sizeUsd, domain.UsdDecimals),
		toFixed(slPrice, domain.PriceDecimals),
		toFixed(tpPrice, domain.PriceDecimals),
	})
}

func (g *Gateway) PlaceOrder(ctx context.Context, assetIndex int64, isLong bool, leverage int, orderPrice, sizeUsd, slPrice, tpPrice decimal.Decimal) (string, error) {
	return g.send(ctx, "placeOrder", []any{
		strconv.FormatInt(assetIndex, 10),
		isLong,
		strconv.Itoa(leverage),
		toFixed(orderPrice, domain.PriceDecimals),
		toFixed(sizeUsd, domain.UsdDecimals),
		toFixed(slPrice, domain.PriceDecimals),
		toFixed(tpPrice, domain.PriceDecimals),
	})
}

func (g *Gateway) ClosePosition(ctx context.Context, openID uint64, proof string) (string, error) {
	return g.send(ctx, "closePosition", []any{
		strconv.FormatUint(openID, 10),
		proof,
	})
}

func (g *Gateway) CancelOrder(ctx context.Context, orderID uint64) (string, error) {
	return g.send(ctx, "cancelOrder", []any{
		strconv.FormatUint(orderID, 10),
	})
}
