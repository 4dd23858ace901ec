package usecase

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
	"github.com/vitos/perps_sync/internal/infrastructure/stream"
)

// MarketFeed owns the market-view stream subscription. Every frame is
// normalized into a fresh snapshot list; an empty parse result is ignored so
// a single lossy frame never flashes an empty market view.
type MarketFeed struct {
	logger *zap.Logger
	stream *stream.Client

	mu           sync.RWMutex
	snapshots    []domain.InstrumentSnapshot
	hasFirstData bool
	onFirstData  func()
}

func NewMarketFeed(feedURL string, logger *zap.Logger) *MarketFeed {
	f := &MarketFeed{logger: logger}
	f.stream = stream.NewClient(feedURL, f.handleMessage, logger.Named("stream"))
	return f
}

// OnFirstData registers a callback fired exactly once, on the first frame
// that yields at least one instrument. Set before Start.
func (f *MarketFeed) OnFirstData(fn func()) {
	f.mu.Lock()
	f.onFirstData = fn
	f.mu.Unlock()
}

func (f *MarketFeed) Start() {
	f.stream.Connect()
}

func (f *MarketFeed) Stop() {
	f.stream.Disconnect()
}

func (f *MarketFeed) Connected() bool {
	return f.stream.Connected()
}

func (f *MarketFeed) HasFirstData() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.hasFirstData
}

// Snapshots returns the latest normalized instrument list.
func (f *MarketFeed) Snapshots() []domain.InstrumentSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.InstrumentSnapshot, len(f.snapshots))
	copy(out, f.snapshots)
	return out
}

func (f *MarketFeed) handleMessage(raw []byte) {
	snapshots, err := ParseFeedFrame(raw)
	if err != nil {
		f.logger.Warn("dropping malformed feed frame", zap.Error(err))
		return
	}
	if len(snapshots) == 0 {
		return
	}

	f.mu.Lock()
	f.snapshots = snapshots
	first := !f.hasFirstData
	f.hasFirstData = true
	fn := f.onFirstData
	f.mu.Unlock()

	if first && fn != nil {
		fn()
	}
}
