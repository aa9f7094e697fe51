package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"foodRescueCoordination/internal/config"
	"foodRescueCoordination/internal/db"
	"foodRescueCoordination/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("Configuration loaded: %v", cfg)

	// Open DB
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Printf("close db: %v", err)
		}
	}()

	svc := service.New(d, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background engines: trust recomputation and the courier-search
	// fallback sweep both run for the life of the process.
	go svc.RunReputationWorker(ctx)
	go svc.RunMatchSweeper(ctx)
	log.Printf("coordination engine running")

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	cancel()
	log.Printf("shutting down")
}
