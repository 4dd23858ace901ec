package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
)

// DefaultPollInterval is the on-chain reconciliation cadence.
const DefaultPollInterval = 10 * time.Second

// PositionStore keeps the trader's open positions, pending orders and
// closed-position history in sync with the chain. It polls three id/record
// queries on a fixed interval plus immediately when an address is set, and
// replaces each collection wholesale so a consumer never observes a
// half-updated set.
//
// Failure handling is soft: a totally failed record batch keeps the
// last-known-good collection, a partial failure drops only the failed ids
// and raises an aggregate warning.
type PositionStore struct {
	reader   domain.ChainReader
	logger   *zap.Logger
	interval time.Duration

	mu        sync.RWMutex
	address   string
	openIDs   []uint64
	orderIDs  []uint64
	positions []domain.OpenPosition
	orders    []domain.OpenOrder
	closed    []domain.ClosedPosition
	warning   string

	cancel context.CancelFunc
}

func NewPositionStore(reader domain.ChainReader, interval time.Duration, logger *zap.Logger) *PositionStore {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PositionStore{
		reader:   reader,
		logger:   logger,
		interval: interval,
	}
}

// SetAddress switches the tracked trader. Setting a non-empty address
// starts the polling loop with an immediate first refresh; setting ""
// (wallet disconnect) stops the loop and clears all local state.
func (s *PositionStore) SetAddress(address string) {
	s.mu.Lock()
	if s.address == address {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.address = address
	s.openIDs, s.orderIDs = nil, nil
	s.positions, s.orders, s.closed = nil, nil, nil
	s.warning = ""

	if address == "" {
		s.mu.Unlock()
		s.logger.Info("position store cleared, polling stopped")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("position store polling started", zap.String("trader", address))
	go s.run(ctx)
}

// Stop tears the poller down. Idempotent.
func (s *PositionStore) Stop() {
	s.SetAddress("")
}

func (s *PositionStore) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// RefreshAfter schedules a one-shot refresh, used after a write submission
// to absorb eventual on-chain consistency.
func (s *PositionStore) RefreshAfter(delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.Refresh(context.Background())
	})
}

// Refresh runs the three polled queries once and reconciles local state.
func (s *PositionStore) Refresh(ctx context.Context) {
	s.mu.RLock()
	address := s.address
	prevOpen := s.openIDs
	prevOrder := s.orderIDs
	s.mu.RUnlock()
	if address == "" {
		return
	}

	var warnings int

	openIDs, err := s.reader.GetOpenIDs(ctx, address)
	if err != nil {
		s.logger.Warn("open id query failed", zap.Error(err))
		warnings++
	} else if !sameIDs(prevOpen, openIDs) {
		positions, fetched := s.fetchPositions(ctx, openIDs)
		if !fetched {
			warnings++
		} else {
			if len(positions) < len(openIDs) {
				warnings++
			}
			// store only the ids actually materialized; a dropped id then
			// differs from the polled list and is retried next tick
			held := make([]uint64, len(positions))
			for i, p := range positions {
				held[i] = p.ID
			}
			s.mu.Lock()
			if s.address == address {
				s.openIDs = held
				s.positions = positions
			}
			s.mu.Unlock()
		}
	}

	orderIDs, err := s.reader.GetOrderIDs(ctx, address)
	if err != nil {
		s.logger.Warn("order id query failed", zap.Error(err))
		warnings++
	} else if !sameIDs(prevOrder, orderIDs) {
		orders, fetched := s.fetchOrders(ctx, orderIDs)
		if !fetched {
			warnings++
		} else {
			if len(orders) < len(orderIDs) {
				warnings++
			}
			held := make([]uint64, len(orders))
			for i, o := range orders {
				held[i] = o.ID
			}
			s.mu.Lock()
			if s.address == address {
				s.orderIDs = held
				s.orders = orders
			}
			s.mu.Unlock()
		}
	}

	closed, err := s.reader.GetClosed(ctx, address)
	if err != nil {
		s.logger.Warn("closed position query failed", zap.Error(err))
		warnings++
	} else {
		s.mu.Lock()
		if s.address == address {
			s.closed = closed
		}
		s.mu.Unlock()
	}

	// an in-flight refresh racing a wallet disconnect must not resurrect
	// cleared state, hence the address re-checks above
	s.mu.Lock()
	if s.address == address {
		if warnings > 0 {
			s.warning = "failed to fetch some trading data"
		} else {
			s.warning = ""
		}
	}
	s.mu.Unlock()
}

// fetchPositions resolves a full record per id, in parallel. The second
// return is false when every lookup failed: the caller then keeps the
// last-known-good collection.
func (s *PositionStore) fetchPositions(ctx context.Context, ids []uint64) ([]domain.OpenPosition, bool) {
	if len(ids) == 0 {
		return nil, true
	}

	results := make([]*domain.OpenPosition, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			position, err := s.reader.GetOpenByID(ctx, id)
			if err != nil {
				s.logger.Warn("position lookup failed", zap.Uint64("id", id), zap.Error(err))
				return
			}
			results[i] = position
		}(i, id)
	}
	wg.Wait()

	positions := make([]domain.OpenPosition, 0, len(ids))
	for _, p := range results {
		if p != nil {
			positions = append(positions, *p)
		}
	}
	return positions, len(positions) > 0
}

func (s *PositionStore) fetchOrders(ctx context.Context, ids []uint64) ([]domain.OpenOrder, bool) {
	if len(ids) == 0 {
		return nil, true
	}

	results := make([]*domain.OpenOrder, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			order, err := s.reader.GetOrderByID(ctx, id)
			if err != nil {
				s.logger.Warn("order lookup failed", zap.Uint64("id", id), zap.Error(err))
				return
			}
			results[i] = order
		}(i, id)
	}
	wg.Wait()

	orders := make([]domain.OpenOrder, 0, len(ids))
	for _, o := range results {
		if o != nil {
			orders = append(orders, *o)
		}
	}
	return orders, len(orders) > 0
}

func sameIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// OpenPositions returns the current open set.
func (s *PositionStore) OpenPositions() []domain.OpenPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.OpenPosition, len(s.positions))
	copy(out, s.positions)
	return out
}

// OpenOrders returns the current pending-order set.
func (s *PositionStore) OpenOrders() []domain.OpenOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.OpenOrder, len(s.orders))
	copy(out, s.orders)
	return out
}

// ClosedPositions returns the historical records in chain order.
func (s *PositionStore) ClosedPositions() []domain.ClosedPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ClosedPosition, len(s.closed))
	copy(out, s.closed)
	return out
}

// Warning reports the aggregate soft-failure condition from the most
// recent refresh, empty when the last refresh was clean.
func (s *PositionStore) Warning() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warning
}
