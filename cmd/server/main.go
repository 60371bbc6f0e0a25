package main

import (
	"context"
	"log"
	"net/http"

	"github.com/vdavid/flowcrm/backend/internal/config"
	"github.com/vdavid/flowcrm/backend/internal/server"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := server.NewApp(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()

	address := ":" + cfg.Port
	log.Printf("FlowCRM mailbox backend starting on %s (environment: %s, store: %s)", address, cfg.Environment, cfg.Store)

	if err := http.ListenAndServe(address, server.NewServer(cfg, app)); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
