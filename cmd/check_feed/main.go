package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vitos/perps_sync/internal/usecase"
)

type Config struct {
	Feed struct {
		URL string `yaml:"url"`
	} `yaml:"feed"`
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
	// 1. Load Config
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Testing market feed...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Feed.URL)

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	feed := usecase.NewMarketFeed(cfg.Feed.URL, log)
	feed.Start()
	defer feed.Stop()

	// 2. Wait for the first frame
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if feed.HasFirstData() {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	if !feed.HasFirstData() {
		fmt.Println("❌ No data received within 30s")
		os.Exit(1)
	}

	snapshots := feed.Snapshots()
	fmt.Printf("✅ Received %d instruments\n", len(snapshots))
	for i, snap := range snapshots {
		if i >= 5 {
			break
		}
		fmt.Printf("   %s price=%f change=%+.2f%%\n", snap.Symbol, snap.Price, snap.ChangePct24h)
	}
}
