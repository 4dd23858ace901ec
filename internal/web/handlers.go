package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/domain"
	"github.com/vitos/perps_sync/internal/usecase"
)

const sparklineIntervalSec = 3600

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// actionError maps coordinator failures onto status codes: rejected input
// is the caller's fault, everything else is an upstream failure.
func (s *Server) actionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNoAddress):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.feed.Snapshots())
}

func (s *Server) handleSparkline(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid pair id", http.StatusBadRequest)
		return
	}

	points, trend := s.sparkline.Render(r.Context(), id, sparklineIntervalSec)
	s.writeJSON(w, map[string]any{
		"points": points,
		"trend":  trend.String(),
		"color":  trend.Color(),
		"path":   usecase.PathData(points),
	})
}

type positionView struct {
	ID         uint64      `json:"id"`
	Pair       string      `json:"pair"`
	Side       domain.Side `json:"side"`
	Leverage   int         `json:"leverage"`
	OpenPrice  string      `json:"open_price"`
	SizeUsd    string      `json:"size_usd"`
	LivePrice  float64     `json:"live_price"`
	Pnl        domain.PnL  `json:"pnl"`
	StopLoss   string      `json:"stop_loss"`
	TakeProfit string      `json:"take_profit"`
	Liq        string      `json:"liquidation_price"`
	OpenedAt   int64       `json:"opened_at"`
}

// handlePositions merges the polled open set with live prices at read time;
// derived fields are never stored.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.store.OpenPositions()
	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		livePrice := s.prices.ResolvePrice(p.AssetIndex)
		views = append(views, positionView{
			ID:         p.ID,
			Pair:       s.prices.ResolveSymbol(p.AssetIndex),
			Side:       p.Side(),
			Leverage:   p.Leverage,
			OpenPrice:  p.OpenPrice.String(),
			SizeUsd:    p.SizeUsd.String(),
			LivePrice:  livePrice,
			Pnl:        domain.ComputePnL(p, livePrice),
			StopLoss:   p.StopLossPrice.String(),
			TakeProfit: p.TakeProfitPrice.String(),
			Liq:        p.LiquidationPrice.String(),
			OpenedAt:   p.Timestamp,
		})
	}
	s.writeJSON(w, map[string]any{
		"positions": views,
		"warning":   s.store.Warning(),
	})
}

type orderView struct {
	ID         uint64      `json:"id"`
	Pair       string      `json:"pair"`
	Side       domain.Side `json:"side"`
	Leverage   int         `json:"leverage"`
	OrderPrice string      `json:"order_price"`
	SizeUsd    string      `json:"size_usd"`
	StopLoss   string      `json:"stop_loss"`
	TakeProfit string      `json:"take_profit"`
	PlacedAt   int64       `json:"placed_at"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.store.OpenOrders()
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView{
			ID:         o.ID,
			Pair:       s.prices.ResolveSymbol(o.AssetIndex),
			Side:       o.Side(),
			Leverage:   o.Leverage,
			OrderPrice: o.OrderPrice.String(),
			SizeUsd:    o.SizeUsd.String(),
			StopLoss:   o.StopLoss.String(),
			TakeProfit: o.TakeProfit.String(),
			PlacedAt:   o.Timestamp,
		})
	}
	s.writeJSON(w, map[string]any{
		"orders":  views,
		"warning": s.store.Warning(),
	})
}

type closedView struct {
	Pair       string      `json:"pair"`
	Side       domain.Side `json:"side"`
	Leverage   int         `json:"leverage"`
	OpenPrice  string      `json:"open_price"`
	ClosePrice string      `json:"close_price"`
	SizeUsd    string      `json:"size_usd"`
	Pnl        string      `json:"pnl"`
	OpenedAt   int64       `json:"opened_at"`
	ClosedAt   int64       `json:"closed_at"`
}

func (s *Server) handleClosed(w http.ResponseWriter, r *http.Request) {
	closed := s.store.ClosedPositions()
	views := make([]closedView, 0, len(closed))
	for _, c := range closed {
		views = append(views, closedView{
			Pair:       s.prices.ResolveSymbol(c.AssetIndex),
			Side:       sideOf(c.IsLong),
			Leverage:   c.Leverage,
			OpenPrice:  c.OpenPrice.String(),
			ClosePrice: c.ClosePrice.String(),
			SizeUsd:    c.SizeUsd.String(),
			Pnl:        c.Pnl.String(),
			OpenedAt:   c.OpenTimestamp,
			ClosedAt:   c.CloseTimestamp,
		})
	}
	s.writeJSON(w, views)
}

func sideOf(isLong bool) domain.Side {
	if isLong {
		return domain.SideLong
	}
	return domain.SideShort
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var form domain.OrderForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "invalid order form", http.StatusBadRequest)
		return
	}
	form.Type = domain.OrderTypeMarket

	if err := s.coordinator.SubmitOrder(r.Context(), form); err != nil {
		s.logger.Warn("open position rejected", zap.Error(err))
		s.actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var form domain.OrderForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "invalid order form", http.StatusBadRequest)
		return
	}
	form.Type = domain.OrderTypeLimit

	if err := s.coordinator.SubmitOrder(r.Context(), form); err != nil {
		s.logger.Warn("place order rejected", zap.Error(err))
		s.actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return
	}
	assetIndex, err := strconv.ParseInt(r.URL.Query().Get("asset"), 10, 64)
	if err != nil {
		http.Error(w, "invalid asset index", http.StatusBadRequest)
		return
	}

	if err := s.coordinator.ClosePosition(r.Context(), id, assetIndex); err != nil {
		s.logger.Warn("close position rejected", zap.Error(err))
		s.actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	if err := s.coordinator.CancelOrder(r.Context(), id); err != nil {
		s.logger.Warn("cancel order rejected", zap.Error(err))
		s.actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	selected, hasSelected := s.viewState.Selected()
	state := map[string]any{
		"global_loading": s.viewState.GlobalLoading(),
		"detail_open":    s.viewState.DetailOpen(),
		"scroll_locked":  s.viewState.ScrollLocked(),
		"feed_connected": s.feed.Connected(),
		"feed_has_data":  s.feed.HasFirstData(),
		"warning":        s.store.Warning(),
	}
	if hasSelected {
		state["selected"] = selected
	}
	s.writeJSON(w, state)
}

func (s *Server) handleOpenDetail(w http.ResponseWriter, r *http.Request) {
	var instrument domain.InstrumentSnapshot
	if err := json.NewDecoder(r.Body).Decode(&instrument); err != nil {
		http.Error(w, "invalid instrument", http.StatusBadRequest)
		return
	}
	s.viewState.OpenDetail(instrument)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseDetail(w http.ResponseWriter, r *http.Request) {
	s.viewState.CloseDetail()
	w.WriteHeader(http.StatusNoContent)
}
