// Command devbackend runs a local stand-in for the OCR backend so the gateway
// can be exercised without the extraction service.
package main

import (
	"fmt"
	"log"
	"os"

	"formscan/internal/config"
	"formscan/internal/devbackend"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dir := cfg.DevBackend.StorageDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage dir: %w", err)
	}

	store := devbackend.NewJobStore(dir)
	r := devbackend.NewRouter(devbackend.NewHandler(store))

	log.Printf("Dev backend starting on %s (jobs in %s)", cfg.DevBackend.Port, dir)
	if err := r.Run(cfg.DevBackend.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
