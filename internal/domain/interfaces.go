package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChainReader is the on-chain read boundary: three queries keyed by the
// trader's address plus per-id record lookups.
type ChainReader interface {
	GetOpenIDs(ctx context.Context, trader string) ([]uint64, error)
	GetOrderIDs(ctx context.Context, trader string) ([]uint64, error)
	GetClosed(ctx context.Context, trader string) ([]ClosedPosition, error)
	GetOpenByID(ctx context.Context, id uint64) (*OpenPosition, error)
	GetOrderByID(ctx context.Context, id uint64) (*OpenOrder, error)
}

// TxStatus is the asynchronous lifecycle of a submitted write.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// ChainWriter is the on-chain write boundary. Each call returns once the
// transaction is accepted by the boundary (not yet confirmed); the final
// status is reported through the registered status handler.
type ChainWriter interface {
	OpenPosition(ctx context.Context, assetIndex int64, proof string, isLong bool, leverage int, sizeUsd, slPrice, tpPrice decimal.Decimal) (txHash string, err error)
	PlaceOrder(ctx context.Context, assetIndex int64, isLong bool, leverage int, orderPrice, sizeUsd, slPrice, tpPrice decimal.Decimal) (txHash string, err error)
	ClosePosition(ctx context.Context, openID uint64, proof string) (txHash string, err error)
	CancelOrder(ctx context.Context, orderID uint64) (txHash string, err error)
	OnTxStatus(fn func(txHash string, status TxStatus))
}

// ProofProvider fetches the short-lived price attestation required before
// a market-priced submission. Proofs must never be cached across calls.
type ProofProvider interface {
	FetchProof(ctx context.Context, assetIndex int64) (string, error)
}

// SeriesSource fetches the raw historical tick series for one pair.
type SeriesSource interface {
	GetSeries(ctx context.Context, pairID int64, intervalSec int) ([]SeriesPoint, error)
}

// Wallet is the external wallet capability. Signing itself happens behind
// the write boundary; this layer only needs the current address and chain.
type Wallet interface {
	Address() (string, bool)
	ChainID() int64
	SwitchChain(ctx context.Context, chainID int64) error
}
