package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
)

const (
	receiptPollInterval = 2 * time.Second
	receiptPollTimeout  = 90 * time.Second
)

// Gateway talks to the contract RPC gateway. Reads are plain calls; writes
// go through the wallet-bound /send endpoint, which accepts a transaction
// and reports pending, then confirmed or failed, through the receipt poll.
type Gateway struct {
	http     *resty.Client
	contract string
	wallet   domain.Wallet
	logger   *zap.Logger

	mu       sync.Mutex
	onStatus func(txHash string, status domain.TxStatus)
}

func NewGateway(baseURL, contract string, wallet domain.Wallet, logger *zap.Logger) *Gateway {
	return &Gateway{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15 * time.Second),
		contract: contract,
		wallet:   wallet,
		logger:   logger,
	}
}

type callRequest struct {
	Contract string `json:"contract"`
	From     string `json:"from,omitempty"`
	Function string `json:"function"`
	Args     []any  `json:"args"`
}

type callResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

type sendResponse struct {
	TxHash string `json:"tx_hash"`
	Error  string `json:"error,omitempty"`
}

type receiptResponse struct {
	Status string `json:"status"` // "pending" | "confirmed" | "failed"
}

func (g *Gateway) call(ctx context.Context, function string, args []any, out any) error {
	var envelope callResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(callRequest{Contract: g.contract, Function: function, Args: args}).
		SetResult(&envelope).
		Post("/call")
	if err != nil {
		return fmt.Errorf("%s: %w", function, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: gateway status %d", function, resp.StatusCode())
	}
	if envelope.Error != "" {
		return fmt.Errorf("%s: %s", function, envelope.Error)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", function, err)
	}
	return nil
}

func (g *Gateway) send(ctx context.Context, function string, args []any) (string, error) {
	from, ok := g.wallet.Address()
	if !ok {
		return "", domain.ErrNoAddress
	}

	var envelope sendResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(callRequest{Contract: g.contract, From: from, Function: function, Args: args}).
		SetResult(&envelope).
		Post("/send")
	if err != nil {
		return "", fmt.Errorf("%s: %w", function, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%s: gateway status %d", function, resp.StatusCode())
	}
	if envelope.Error != "" {
		return "", fmt.Errorf("%s: %s", function, envelope.Error)
	}
	if envelope.TxHash == "" {
		return "", fmt.Errorf("%s: gateway returned no tx hash", function)
	}

	g.notify(envelope.TxHash, domain.TxPending)
	go g.watchReceipt(envelope.TxHash)
	return envelope.TxHash, nil
}

// OnTxStatus registers the asynchronous pending/confirmed/failed reporter.
func (g *Gateway) OnTxStatus(fn func(txHash string, status domain.TxStatus)) {
	g.mu.Lock()
	g.onStatus = fn
	g.mu.Unlock()
}

func (g *Gateway) notify(txHash string, status domain.TxStatus) {
	g.mu.Lock()
	fn := g.onStatus
	g.mu.Unlock()
	if fn != nil {
		fn(txHash, status)
	}
}

func (g *Gateway) watchReceipt(txHash string) {
	deadline := time.Now().Add(receiptPollTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(receiptPollInterval)

		var receipt receiptResponse
		resp, err := g.http.R().
			SetQueryParam("tx", txHash).
			SetResult(&receipt).
			Get("/receipt")
		if err != nil || resp.IsError() {
			continue
		}
		switch domain.TxStatus(receipt.Status) {
		case domain.TxConfirmed:
			g.notify(txHash, domain.TxConfirmed)
			return
		case domain.TxFailed:
			g.notify(txHash, domain.TxFailed)
			return
		}
	}
	g.logger.Warn("receipt poll timed out", zap.String("tx", txHash))
}
