package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"WattCast/internal/di"
	"WattCast/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	interval := flag.Duration("interval", 0, "pause between cycles (overrides loop.interval)")
	threshold := flag.Float64("threshold", 0, "REDUCE above this many kW (overrides loop.threshold)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *interval, *threshold)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// blocks until interrupted or the loop fails
	if err := app.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "wattcast: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Smart Energy Manager stopped by user.")
}

// loadConfig reads the file, or the defaults when the default path is
// absent, then applies flag overrides.
func loadConfig(path string, interval time.Duration, threshold float64) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil && os.IsNotExist(err) && path == "config/config.yaml" {
		path = ""
	}
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	if interval > 0 {
		cfg.Loop.Interval = interval
	}
	if threshold > 0 {
		cfg.Loop.Threshold = threshold
	}
	return cfg, nil
}
