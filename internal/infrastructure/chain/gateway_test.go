package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
)

// gatewayServer scripts /call, /send and /receipt and records every request
// body so tests can assert the exact contract tuples sent over the wire.
type gatewayServer struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []callRequest
	results  map[string]string
	sendErr  string
	receipt  string
}

func newGatewayServer(t *testing.T) *gatewayServer {
	gs := &gatewayServer{
		results: map[string]string{},
		receipt: "pending",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /call", func(w http.ResponseWriter, r *http.Request) {
		req := gs.record(t, r)
		gs.mu.Lock()
		result, ok := gs.results[req.Function]
		gs.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			json.NewEncoder(w).Encode(callResponse{Error: "unknown function"})
			return
		}
		w.Write([]byte(`{"result":` + result + `}`))
	})
	mux.HandleFunc("POST /send", func(w http.ResponseWriter, r *http.Request) {
		gs.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		gs.mu.Lock()
		sendErr := gs.sendErr
		gs.mu.Unlock()
		if sendErr != "" {
			json.NewEncoder(w).Encode(sendResponse{Error: sendErr})
			return
		}
		json.NewEncoder(w).Encode(sendResponse{TxHash: "0xabc123"})
	})
	mux.HandleFunc("GET /receipt", func(w http.ResponseWriter, r *http.Request) {
		gs.mu.Lock()
		status := gs.receipt
		gs.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(receiptResponse{Status: status})
	})
	gs.server = httptest.NewServer(mux)
	t.Cleanup(gs.server.Close)
	return gs
}

func (gs *gatewayServer) record(t *testing.T, r *http.Request) callRequest {
	var req callRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	gs.mu.Lock()
	gs.requests = append(gs.requests, req)
	gs.mu.Unlock()
	return req
}

func (gs *gatewayServer) lastRequest(t *testing.T) callRequest {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	require.NotEmpty(t, gs.requests)
	return gs.requests[len(gs.requests)-1]
}

func newTestGateway(t *testing.T, gs *gatewayServer, address string) *Gateway {
	wallet := NewStaticWallet(address, 688688)
	return NewGateway(gs.server.URL, "0xcontract", wallet, zap.NewNop())
}

func TestGetOpenIDs(t *testing.T) {
	gs := newGatewayServer(t)
	gs.results["getUserOpenIds"] = `["3","17","42"]`
	gw := newTestGateway(t, gs, "0xtrader")

	ids, err := gw.GetOpenIDs(context.Background(), "0xtrader")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 17, 42}, ids)

	req := gs.lastRequest(t)
	assert.Equal(t, "0xcontract", req.Contract)
	assert.Equal(t, "getUserOpenIds", req.Function)
	assert.Equal(t, []any{"0xtrader"}, req.Args)
}

func TestGetOpenIDsRejectsBadID(t *testing.T) {
	gs := newGatewayServer(t)
	gs.results["getUserOpenIds"] = `["3","not-a-number"]`
	gw := newTestGateway(t, gs, "0xtrader")

	_, err := gw.GetOpenIDs(context.Background(), "0xtrader")
	assert.Error(t, err)
}

func TestGetOpenByIDDescalesFixedPoint(t *testing.T) {
	gs := newGatewayServer(t)
	gs.results["getOpenById"] = `{
		"trader": "0xtrader",
		"id": "42",
		"assetIndex": "1",
		"isLong": true,
		"leverage": "10",
		"openPrice": "65000000000000000000000",
		"sizeUsd": "100000000",
		"timestamp": "1700000000",
		"slBucketId": "0",
		"tpBucketId": "0",
		"liqBucketId": "7",
		"stopLossPrice": "60000000000000000000000",
		"takeProfitPrice": "0",
		"liquidationPrice": "58500000000000000000000"
	}`
	gw := newTestGateway(t, gs, "0xtrader")

	position, err := gw.GetOpenByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), position.ID)
	assert.Equal(t, int64(1), position.AssetIndex)
	assert.True(t, position.IsLong)
	assert.Equal(t, 10, position.Leverage)
	assert.True(t, position.OpenPrice.Equal(decimal.NewFromInt(65000)), "openPrice %s", position.OpenPrice)
	assert.True(t, position.SizeUsd.Equal(decimal.NewFromInt(100)), "sizeUsd %s", position.SizeUsd)
	assert.True(t, position.StopLossPrice.Equal(decimal.NewFromInt(60000)))
	assert.True(t, position.LiquidationPrice.Equal(decimal.NewFromInt(58500)))
	assert.Equal(t, uint64(7), position.LiqBucketID)
}

func TestGetClosed(t *testing.T) {
	gs := newGatewayServer(t)
	gs.results["getUserCloseds"] = `[{
		"assetIndex": "1",
		"isLong": false,
		"leverage": "5",
		"openPrice": "3000000000000000000000",
		"closePrice": "2900000000000000000000",
		"sizeUsd": "50000000",
		"openTimestamp": "1700000000",
		"closeTimestamp": "1700003600",
		"pnl": "1666666"
	}]`
	gw := newTestGateway(t, gs, "0xtrader")

	closed, err := gw.GetClosed(context.Background(), "0xtrader")
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.False(t, closed[0].IsLong)
	assert.True(t, closed[0].OpenPrice.Equal(decimal.NewFromInt(3000)))
	assert.True(t, closed[0].SizeUsd.Equal(decimal.NewFromInt(50)))
	assert.True(t, closed[0].Pnl.Equal(decimal.RequireFromString("1.666666")))
}

func TestCallGatewayError(t *testing.T) {
	gs := newGatewayServer(t)
	gw := newTestGateway(t, gs, "0xtrader")

	_, err := gw.GetOpenIDs(context.Background(), "0xtrader")
	assert.ErrorContains(t, err, "unknown function")
}

func TestOpenPositionSendsContractTuple(t *testing.T) {
	gs := newGatewayServer(t)
	gw := newTestGateway(t, gs, "0xtrader")

	hash, err := gw.OpenPosition(context.Background(), 1, "0xproof", true, 10,
		decimal.NewFromInt(100), decimal.NewFromInt(60000), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", hash)

	req := gs.lastRequest(t)
	assert.Equal(t, "openPosition", req.Function)
	assert.Equal(t, "0xtrader", req.From)
	assert.Equal(t, []any{
		"1", "0xproof", true, "10",
		"100000000",
		"60000000000000000000000",
		"0",
	}, req.Args)
}

func TestPlaceOrderSendsContractTuple(t *testing.T) {
	gs := newGatewayServer(t)
	gw := newTestGateway(t, gs, "0xtrader")

	_, err := gw.PlaceOrder(context.Background(), 2, false, 20,
		decimal.RequireFromString("1.5"), decimal.NewFromInt(10), decimal.Zero, decimal.Zero)
	require.NoError(t, err)

	req := gs.lastRequest(t)
	assert.Equal(t, "placeOrder", req.Function)
	assert.Equal(t, []any{
		"2", false, "20",
		"1500000000000000000",
		"10000000",
		"0", "0",
	}, req.Args)
}

func TestSendWithoutWallet(t *testing.T) {
	gs := newGatewayServer(t)
	gw := newTestGateway(t, gs, "")

	_, err := gw.CancelOrder(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNoAddress)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	assert.Empty(t, gs.requests)
}

func TestSendGatewayRejection(t *testing.T) {
	gs := newGatewayServer(t)
	gs.sendErr = "execution reverted"
	gw := newTestGateway(t, gs, "0xtrader")

	_, err := gw.ClosePosition(context.Background(), 42, "0xproof")
	assert.ErrorContains(t, err, "execution reverted")
}

func TestSendReportsTxStatus(t *testing.T) {
	gs := newGatewayServer(t)
	gs.mu.Lock()
	gs.receipt = "confirmed"
	gs.mu.Unlock()
	gw := newTestGateway(t, gs, "0xtrader")

	var mu sync.Mutex
	var statuses []domain.TxStatus
	gw.OnTxStatus(func(txHash string, status domain.TxStatus) {
		mu.Lock()
		statuses = append(statuses, status)
		mu.Unlock()
		assert.Equal(t, "0xabc123", txHash)
	})

	_, err := gw.CancelOrder(context.Background(), 7)
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []domain.TxStatus{domain.TxPending}, statuses)
	mu.Unlock()

	// the receipt watcher polls on a fixed cadence, so confirmation lands
	// a couple of seconds after submission
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) == 2 && statuses[1] == domain.TxConfirmed
	}, 10*time.Second, 100*time.Millisecond)
}

func TestFixedPointRoundTrip(t *testing.T) {
	size := decimal.RequireFromString("123.456789")
	assert.Equal(t, "123456789", toFixed(size, domain.UsdDecimals))
	assert.True(t, fromFixed("123456789", domain.UsdDecimals).Equal(size))

	// sub-unit dust beyond the fixed precision truncates
	assert.Equal(t, "10000001", toFixed(decimal.RequireFromString("10.0000019"), domain.UsdDecimals))

	assert.True(t, fromFixed("garbage", domain.UsdDecimals).IsZero())
}
