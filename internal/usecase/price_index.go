package usecase

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/infrastructure/stream"
)

// UnknownSymbol is returned when an asset index has no known pair name yet.
const UnknownSymbol = "Unknown"

// PriceIndex owns the trading-view stream subscription and maintains the
// id->symbol and id->last-price mappings used to resolve on-chain asset
// indices. Entries are never removed for the life of the index; symbols are
// stable once set (last writer wins if the feed renames a pair) and prices
// are overwritten on every message.
type PriceIndex struct {
	logger *zap.Logger
	stream *stream.Client

	mu           sync.RWMutex
	idToSymbol   map[int64]string
	lastPrices   map[int64]float64
	hasFirstData bool
}

func NewPriceIndex(feedURL string, logger *zap.Logger) *PriceIndex {
	p := &PriceIndex{
		logger:     logger,
		idToSymbol: make(map[int64]string),
		lastPrices: make(map[int64]float64),
	}
	p.stream = stream.NewClient(feedURL, p.handleMessage, logger.Named("stream"))
	return p
}

func (p *PriceIndex) Start() {
	p.stream.Connect()
}

func (p *PriceIndex) Stop() {
	p.stream.Disconnect()
}

func (p *PriceIndex) Connected() bool {
	return p.stream.Connected()
}

// HasFirstData flips true on the first message that maps at least one id
// and never resets afterwards.
func (p *PriceIndex) HasFirstData() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hasFirstData
}

// ResolveSymbol returns the pair name for an asset index, or UnknownSymbol.
func (p *PriceIndex) ResolveSymbol(assetIndex int64) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if symbol, ok := p.idToSymbol[assetIndex]; ok {
		return symbol
	}
	return UnknownSymbol
}

// ResolvePrice returns the last seen price for an asset index, or 0.
func (p *PriceIndex) ResolvePrice(assetIndex int64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPrices[assetIndex]
}

func (p *PriceIndex) handleMessage(raw []byte) {
	envelopes, err := decodeFrame(raw)
	if err != nil {
		p.logger.Warn("dropping malformed feed frame", zap.Error(err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rawEnv := range envelopes {
		env, instruments, ok := decodeEnvelope(rawEnv)
		if !ok || env.ID == nil {
			continue
		}
		// the trading view only needs the leading instrument of each envelope
		inst := instruments[0]
		p.idToSymbol[*env.ID] = strings.ToUpper(inst.TradingPair)
		p.lastPrices[*env.ID] = inst.CurrentPrice.Float64()
	}
	if !p.hasFirstData && len(p.idToSymbol) > 0 {
		p.hasFirstData = true
	}
}
