package main

import (
	"context"
	"flag"
	"log"
	"os"

	"MarketBrief/internal/di"
	"MarketBrief/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s data_dir=%s kafka=%t redis=%t", cfg.Environment, cfg.Storage.DataDir, cfg.Kafka.Enabled, cfg.Cache.Redis.Enabled)

	app, err := di.InitializeDashboard(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
