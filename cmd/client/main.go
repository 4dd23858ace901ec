package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vitos/perps_sync/internal/infrastructure/chain"
	"github.com/vitos/perps_sync/internal/infrastructure/history"
	"github.com/vitos/perps_sync/internal/infrastructure/logger"
	"github.com/vitos/perps_sync/internal/infrastructure/proof"
	"github.com/vitos/perps_sync/internal/usecase"
	"github.com/vitos/perps_sync/internal/web"
)

type Config struct {
	Feed struct {
		URL string `yaml:"url"`
	} `yaml:"feed"`
	History struct {
		URL string `yaml:"url"`
	} `yaml:"history"`
	Proof struct {
		URL string `yaml:"url"`
	} `yaml:"proof"`
	Chain struct {
		GatewayURL string `yaml:"gateway_url"`
		Contract   string `yaml:"contract"`
		ChainID    int64  `yaml:"chain_id"`
		Trader     string `yaml:"trader"`
	} `yaml:"chain"`
	Polling struct {
		IntervalMs int `yaml:"interval_ms"`
	} `yaml:"polling"`
	Logging struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Console)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. External boundaries
	wallet := chain.NewStaticWallet(cfg.Chain.Trader, cfg.Chain.ChainID)
	gateway := chain.NewGateway(cfg.Chain.GatewayURL, cfg.Chain.Contract, wallet, log.Named("chain"))
	proofs := proof.NewClient(cfg.Proof.URL, log.Named("proof"))
	charts := history.NewClient(cfg.History.URL, log.Named("history"))

	// 4. Live-data components
	viewState := usecase.NewViewState()
	feed := usecase.NewMarketFeed(cfg.Feed.URL, log.Named("market_feed"))
	prices := usecase.NewPriceIndex(cfg.Feed.URL, log.Named("price_index"))
	sparkline := usecase.NewSparkline(charts, usecase.DefaultViewport, log.Named("sparkline"))

	pollInterval := time.Duration(cfg.Polling.IntervalMs) * time.Millisecond
	store := usecase.NewPositionStore(gateway, pollInterval, log.Named("position_store"))
	coordinator := usecase.NewTradeCoordinator(gateway, proofs, wallet, prices, store, log.Named("trade"))

	// The global loading flag clears once the market feed delivers data.
	feed.OnFirstData(func() {
		viewState.SetGlobalLoading(false)
	})

	// 5. Start the three independent activity sources
	feed.Start()
	prices.Start()
	if address, ok := wallet.Address(); ok {
		store.SetAddress(address)
	}

	// 6. Web server
	server := web.NewServer(cfg.Server.Port, feed, prices, store, coordinator, sparkline, viewState, log.Named("web"))
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	// 7. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	feed.Stop()
	prices.Stop()
	store.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Web server shutdown failed", zap.Error(err))
	}
}
