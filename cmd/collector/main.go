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
	once := flag.Bool("once", false, "run a single collection and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := cfg.ValidateCollector(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	app, err := di.InitializeCollector(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if *once || cfg.Collector.Interval <= 0 {
		report, err := app.RunOnce(context.Background())
		if err != nil {
			log.Printf("collection failed: %v", err)
			os.Exit(1)
		}
		log.Printf("snapshot %s written to %s (%d provider errors)", report.AsOf, report.Location, len(report.ProviderErrors))
		return
	}

	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
