package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/perps_sync/internal/usecase"
)

// Server exposes the synchronized state as a JSON API and forwards trade
// actions to the coordinator. Rendering itself lives elsewhere; this layer
// only serves data views.
type Server struct {
	router      *http.ServeMux
	server      *http.Server
	feed        *usecase.MarketFeed
	prices      *usecase.PriceIndex
	store       *usecase.PositionStore
	coordinator *usecase.TradeCoordinator
	sparkline   *usecase.Sparkline
	viewState   *usecase.ViewState
	logger      *zap.Logger
}

func NewServer(
	port int,
	feed *usecase.MarketFeed,
	prices *usecase.PriceIndex,
	store *usecase.PositionStore,
	coordinator *usecase.TradeCoordinator,
	sparkline *usecase.Sparkline,
	viewState *usecase.ViewState,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:      http.NewServeMux(),
		feed:        feed,
		prices:      prices,
		store:       store,
		coordinator: coordinator,
		sparkline:   sparkline,
		viewState:   viewState,
		logger:      logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Markets
	s.router.HandleFunc("GET /api/markets", s.handleMarkets)
	s.router.HandleFunc("GET /api/markets/{id}/sparkline", s.handleSparkline)

	// Trading data
	s.router.HandleFunc("GET /api/positions", s.handlePositions)
	s.router.HandleFunc("GET /api/orders", s.handleOrders)
	s.router.HandleFunc("GET /api/closed", s.handleClosed)

	// Trade actions
	s.router.HandleFunc("POST /api/positions/open", s.handleOpen)
	s.router.HandleFunc("POST /api/positions/{id}/close", s.handleClose)
	s.router.HandleFunc("POST /api/orders", s.handlePlaceOrder)
	s.router.HandleFunc("DELETE /api/orders/{id}", s.handleCancelOrder)

	// View state
	s.router.HandleFunc("GET /api/state", s.handleState)
	s.router.HandleFunc("POST /api/state/detail", s.handleOpenDetail)
	s.router.HandleFunc("DELETE /api/state/detail", s.handleCloseDetail)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
