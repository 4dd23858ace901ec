package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
)

// mockChainReader scripts the three polled queries and records which ids
// were looked up.
type mockChainReader struct {
	mu       sync.Mutex
	openIDs  []uint64
	orderIDs []uint64
	closed   []domain.ClosedPosition
	idErr    error
	failOpen map[uint64]bool
	fetched  []uint64
	failAll  bool
}

func (m *mockChainReader) GetOpenIDs(ctx context.Context, trader string) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openIDs, m.idErr
}

func (m *mockChainReader) GetOrderIDs(ctx context.Context, trader string) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderIDs, m.idErr
}

func (m *mockChainReader) GetClosed(ctx context.Context, trader string) ([]domain.ClosedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed, m.idErr
}

func (m *mockChainReader) GetOpenByID(ctx context.Context, id uint64) (*domain.OpenPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, id)
	if m.failAll || m.failOpen[id] {
		return nil, fmt.Errorf("record %d unavailable", id)
	}
	return &domain.OpenPosition{ID: id, AssetIndex: int64(id), IsLong: true, Leverage: 10}, nil
}

func (m *mockChainReader) GetOrderByID(ctx context.Context, id uint64) (*domain.OpenOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errors.New("order unavailable")
	}
	return &domain.OpenOrder{ID: id}, nil
}

func newTestStore(reader domain.ChainReader) *PositionStore {
	s := NewPositionStore(reader, time.Hour, zap.NewNop())
	s.address = "0xtrader"
	return s
}

func openIDsOf(positions []domain.OpenPosition) []uint64 {
	ids := make([]uint64, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	return ids
}

func TestRefreshReconcilesIDChanges(t *testing.T) {
	reader := &mockChainReader{openIDs: []uint64{1, 2}}
	store := newTestStore(reader)
	ctx := context.Background()

	store.Refresh(ctx)
	assert.ElementsMatch(t, []uint64{1, 2}, openIDsOf(store.OpenPositions()))

	// ids move from {1,2} to {2,3}: both surviving ids are re-fetched and
	// 1 is dropped without an explicit fetch
	reader.mu.Lock()
	reader.openIDs = []uint64{2, 3}
	reader.fetched = nil
	reader.mu.Unlock()

	store.Refresh(ctx)
	assert.ElementsMatch(t, []uint64{2, 3}, reader.fetched)
	assert.ElementsMatch(t, []uint64{2, 3}, openIDsOf(store.OpenPositions()))
	assert.Empty(t, store.Warning())
}

func TestRefreshSkipsFetchWhenIDsUnchanged(t *testing.T) {
	reader := &mockChainReader{openIDs: []uint64{1, 2}}
	store := newTestStore(reader)
	ctx := context.Background()

	store.Refresh(ctx)
	reader.mu.Lock()
	reader.fetched = nil
	reader.mu.Unlock()

	store.Refresh(ctx)
	assert.Empty(t, reader.fetched)
}

func TestRefreshPartialFailureIsolation(t *testing.T) {
	// one rejecting lookup out of five: exactly the four successes remain
	reader := &mockChainReader{
		openIDs:  []uint64{1, 2, 3, 4, 5},
		failOpen: map[uint64]bool{3: true},
	}
	store := newTestStore(reader)

	store.Refresh(context.Background())
	assert.ElementsMatch(t, []uint64{1, 2, 4, 5}, openIDsOf(store.OpenPositions()))
	assert.NotEmpty(t, store.Warning())
}

func TestRefreshTotalBatchFailureKeepsLastKnownGood(t *testing.T) {
	reader := &mockChainReader{openIDs: []uint64{1, 2}}
	store := newTestStore(reader)
	ctx := context.Background()

	store.Refresh(ctx)
	require.Len(t, store.OpenPositions(), 2)

	reader.mu.Lock()
	reader.openIDs = []uint64{3, 4}
	reader.failAll = true
	reader.mu.Unlock()

	store.Refresh(ctx)
	assert.ElementsMatch(t, []uint64{1, 2}, openIDsOf(store.OpenPositions()))
	assert.NotEmpty(t, store.Warning())
}

func TestRefreshIDQueryFailureKeepsState(t *testing.T) {
	reader := &mockChainReader{openIDs: []uint64{1}}
	store := newTestStore(reader)
	ctx := context.Background()

	store.Refresh(ctx)
	require.Len(t, store.OpenPositions(), 1)

	reader.mu.Lock()
	reader.idErr = errors.New("rpc down")
	reader.mu.Unlock()

	store.Refresh(ctx)
	assert.Len(t, store.OpenPositions(), 1)
	assert.NotEmpty(t, store.Warning())
}

func TestRefreshEmptyIDListClears(t *testing.T) {
	reader := &mockChainReader{openIDs: []uint64{1}}
	store := newTestStore(reader)
	ctx := context.Background()

	store.Refresh(ctx)
	require.Len(t, store.OpenPositions(), 1)

	reader.mu.Lock()
	reader.openIDs = nil
	reader.mu.Unlock()

	store.Refresh(ctx)
	assert.Empty(t, store.OpenPositions())
}

func TestSetAddressLifecycle(t *testing.T) {
	reader := &mockChainReader{openIDs: []uint64{1}}
	store := NewPositionStore(reader, time.Hour, zap.NewNop())

	store.SetAddress("0xtrader")
	require.Eventually(t, func() bool {
		return len(store.OpenPositions()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// wallet disconnect stops polling and clears everything
	store.SetAddress("")
	assert.Empty(t, store.OpenPositions())
	assert.Empty(t, store.OpenOrders())
	assert.Empty(t, store.ClosedPositions())
	assert.Empty(t, store.Warning())

	// idempotent teardown
	store.Stop()
	store.Stop()
}

func TestRefreshWithoutAddressIsNoop(t *testing.T) {
	reader := &mockChainReader{openIDs: []uint64{1}}
	store := NewPositionStore(reader, time.Hour, zap.NewNop())

	store.Refresh(context.Background())
	assert.Empty(t, reader.fetched)
	assert.Empty(t, store.OpenPositions())
}
