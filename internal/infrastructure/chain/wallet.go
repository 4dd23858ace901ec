package chain

import (
	"context"
	"sync"
)

// StaticWallet is a config-backed wallet capability. Signing happens behind
// the gateway; this side only tracks the active address and chain id.
// An empty address means no wallet is connected.
type StaticWallet struct {
	mu      sync.RWMutex
	address string
	chainID int64
}

func NewStaticWallet(address string, chainID int64) *StaticWallet {
	return &StaticWallet{address: address, chainID: chainID}
}

func (w *StaticWallet) Address() (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.address, w.address != ""
}

// SetAddress swaps the active address; "" disconnects.
func (w *StaticWallet) SetAddress(address string) {
	w.mu.Lock()
	w.address = address
	w.mu.Unlock()
}

func (w *StaticWallet) ChainID() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chainID
}

func (w *StaticWallet) SwitchChain(ctx context.Context, chainID int64) error {
	w.mu.Lock()
	w.chainID = chainID
	w.mu.Unlock()
	return nil
}
