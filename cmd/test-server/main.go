package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vdavid/flowcrm/backend/internal/config"
	"github.com/vdavid/flowcrm/backend/internal/server"
	"github.com/vdavid/flowcrm/backend/internal/testutil"
)

const smtpAddress = "127.0.0.1:1025"

func main() {
	ctx := context.Background()

	if err := setupTestEnvironment(); err != nil {
		log.Fatalf("Failed to setup test environment: %v", err)
	}

	smtpServer, err := testutil.NewTestSMTPServerForE2E(smtpAddress)
	if err != nil {
		log.Fatalf("Failed to start test SMTP server: %v", err)
	}
	defer smtpServer.Close()
	log.Printf("Test SMTP server started on %s", smtpServer.Address)

	if os.Getenv("CRM_STORE") == config.StorePostgres {
		container, err := startPostgres(ctx)
		if err != nil {
			log.Fatalf("Failed to start Postgres: %v", err)
		}
		defer func() {
			if err := container.Terminate(ctx); err != nil {
				log.Printf("Failed to terminate Postgres container: %v", err)
			}
		}()
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}
	defer app.Close()

	if err := startHTTPServer(cfg, app, smtpServer); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// setupTestEnvironment points the API at the local SMTP sink and enables the
// test-only routes.
func setupTestEnvironment() error {
	host, port, err := net.SplitHostPort(smtpAddress)
	if err != nil {
		return err
	}

	env := map[string]string{
		"CRM_ENV":       "test",
		"CRM_SMTP_HOST": host,
		"CRM_SMTP_PORT": port,
	}
	for key, value := range env {
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// startPostgres starts a throwaway Postgres and exports its coordinates as
// CRM_DB_* variables.
func startPostgres(ctx context.Context) (testcontainers.Container, error) {
	log.Println("Starting test Postgres database...")
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("flowcrm_test"),
		postgres.WithUsername("flowcrm"),
		postgres.WithPassword("flowcrm"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start Postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container, fmt.Errorf("failed to get container port: %w", err)
	}

	env := map[string]string{
		"CRM_DB_HOST":     host,
		"CRM_DB_PORT":     port.Port(),
		"CRM_DB_USER":     "flowcrm",
		"CRM_DB_PASSWORD": "flowcrm",
		"CRM_DB_NAME":     "flowcrm_test",
		"CRM_DB_SSLMODE":  "disable",
	}
	for key, value := range env {
		if err := os.Setenv(key, value); err != nil {
			return container, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	log.Println("Test Postgres database started")
	return container, nil
}

// startHTTPServer serves the API until SIGINT or SIGTERM.
func startHTTPServer(cfg *config.Config, app *server.App, smtpServer *testutil.TestSMTPServer) error {
	address := ":" + cfg.Port
	httpServer := &http.Server{
		Addr:              address,
		Handler:           server.NewServer(cfg, app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("FlowCRM test server starting on %s (store: %s)", address, cfg.Store)
	log.Printf("Test SMTP server: %s (any credentials accepted)", smtpServer.Address)
	log.Println("Server ready for E2E tests. Press Ctrl+C to stop.")

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}
}
