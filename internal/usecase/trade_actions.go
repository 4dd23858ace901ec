package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
)

// DefaultRefreshDelay is how long after an accepted submission the store
// is refreshed. A heuristic, not a confirmation-driven trigger: it absorbs
// eventual on-chain consistency and may under- or over-shoot settlement.
const DefaultRefreshDelay = 5 * time.Second

// storeRefresher is what the coordinator needs from the position store.
type storeRefresher interface {
	RefreshAfter(delay time.Duration)
}

// symbolResolver is what the coordinator needs from the price index.
type symbolResolver interface {
	ResolveSymbol(assetIndex int64) string
}

// TradeCoordinator drives the write-side flows. Every flow has the same
// shape: validate, fetch a proof when the execution is market-priced,
// submit, then schedule a reconciliation refresh. A failed validation or
// proof fetch performs no write and schedules no refresh.
type TradeCoordinator struct {
	writer       domain.ChainWriter
	proofs       domain.ProofProvider
	wallet       domain.Wallet
	prices       symbolResolver
	store        storeRefresher
	logger       *zap.Logger
	refreshDelay time.Duration
}

func NewTradeCoordinator(
	writer domain.ChainWriter,
	proofs domain.ProofProvider,
	wallet domain.Wallet,
	prices symbolResolver,
	store storeRefresher,
	logger *zap.Logger,
) *TradeCoordinator {
	c := &TradeCoordinator{
		writer:       writer,
		proofs:       proofs,
		wallet:       wallet,
		prices:       prices,
		store:        store,
		logger:       logger,
		refreshDelay: DefaultRefreshDelay,
	}
	writer.OnTxStatus(c.handleTxStatus)
	return c
}

// SubmitOrder executes a staged order form: market forms open a position
// behind a fresh proof, limit forms place an order directly.
func (c *TradeCoordinator) SubmitOrder(ctx context.Context, form domain.OrderForm) error {
	if _, ok := c.wallet.Address(); !ok {
		return domain.ErrNoAddress
	}
	if err := form.Validate(); err != nil {
		return err
	}
	if c.prices.ResolveSymbol(form.AssetIndex) == UnknownSymbol {
		return fmt.Errorf("%w: unknown asset index %d", domain.ErrValidation, form.AssetIndex)
	}

	var (
		txHash string
		err    error
	)
	if form.Type == domain.OrderTypeLimit {
		txHash, err = c.writer.PlaceOrder(ctx, form.AssetIndex, form.IsLong(), form.Leverage,
			form.TargetPriceDecimal(), form.SizeDecimal(), form.StopLossDecimal(), form.TakeProfitDecimal())
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
	} else {
		proof, perr := c.proofs.FetchProof(ctx, form.AssetIndex)
		if perr != nil {
			return fmt.Errorf("open position: %w", perr)
		}
		txHash, err = c.writer.OpenPosition(ctx, form.AssetIndex, proof, form.IsLong(), form.Leverage,
			form.SizeDecimal(), form.StopLossDecimal(), form.TakeProfitDecimal())
		if err != nil {
			return fmt.Errorf("open position: %w", err)
		}
	}

	c.logger.Info("order submitted",
		zap.String("tx", txHash),
		zap.Int64("asset", form.AssetIndex),
		zap.String("type", string(form.Type)),
		zap.String("side", string(form.Side)))
	c.store.RefreshAfter(c.refreshDelay)
	return nil
}

// ClosePosition market-closes an open position. The proof is fetched fresh
// immediately before submission and never reused.
func (c *TradeCoordinator) ClosePosition(ctx context.Context, openID uint64, assetIndex int64) error {
	if _, ok := c.wallet.Address(); !ok {
		return domain.ErrNoAddress
	}

	proof, err := c.proofs.FetchProof(ctx, assetIndex)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}

	txHash, err := c.writer.ClosePosition(ctx, openID, proof)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}

	c.logger.Info("position close submitted",
		zap.String("tx", txHash),
		zap.Uint64("open_id", openID))
	c.store.RefreshAfter(c.refreshDelay)
	return nil
}

// CancelOrder cancels a pending limit order; no proof is required.
func (c *TradeCoordinator) CancelOrder(ctx context.Context, orderID uint64) error {
	if _, ok := c.wallet.Address(); !ok {
		return domain.ErrNoAddress
	}

	txHash, err := c.writer.CancelOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	c.logger.Info("order cancellation submitted",
		zap.String("tx", txHash),
		zap.Uint64("order_id", orderID))
	c.store.RefreshAfter(c.refreshDelay)
	return nil
}

func (c *TradeCoordinator) handleTxStatus(txHash string, status domain.TxStatus) {
	switch status {
	case domain.TxFailed:
		c.logger.Warn("transaction failed", zap.String("tx", txHash))
	default:
		c.logger.Info("transaction status", zap.String("tx", txHash), zap.String("status", string(status)))
	}
}
