// Command migrate creates the tables, indexes and schema the configured store backend needs.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"cookbook/internal/config"
	"cookbook/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "Maximum time to wait for the store")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// auto-create runs every table and index preparation step
	cfg.StoreAutoCreate = true

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	tables, err := server.OpenTables(ctx, cfg)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if tables.Close != nil {
		if err := tables.Close(ctx); err != nil {
			log.Printf("Close error: %v", err)
		}
	}

	log.Printf("%s store is ready", cfg.StoreBackend)
}
