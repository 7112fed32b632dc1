// cmd/meal-tracker/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mcp-meal-tracker/internal/server"
	"mcp-meal-tracker/internal/storage"
)

var (
	transport   = flag.String("transport", "http", "Transport mode: http")
	port        = flag.Int("port", 8011, "Port for HTTP transport")
	host        = flag.String("host", "0.0.0.0", "Host address")
	backend     = flag.String("storage", storage.BackendSQLite, "Storage backend: sqlite, postgres, or jsonfile")
	dbPath      = flag.String("db-path", "/data/meal-tracker.db", "SQLite database path")
	dataFile    = flag.String("data-file", "/data/meals.json", "JSON data file path (jsonfile backend)")
	postgresURL = flag.String("postgres-url", "", "PostgreSQL connection string (defaults to DATABASE_URL)")
	version     = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("mcp-meal-tracker version 1.0.0")
		os.Exit(0)
	}

	// Optional .env file for local development.
	_ = godotenv.Load()

	connStr := *postgresURL
	if connStr == "" {
		connStr = os.Getenv("DATABASE_URL")
	}

	config := &server.Config{
		Transport: *transport,
		Host:      *host,
		Port:      *port,
		Storage: storage.Config{
			Backend:     *backend,
			DBPath:      *dbPath,
			DataFile:    *dataFile,
			PostgresURL: connStr,
		},
	}

	// Create server
	srv, err := server.NewMealTrackerServer(config)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigCh:
		log.Println("Received shutdown signal")
	case err := <-errCh:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown
	log.Println("Shutting down...")
	cancel()
	if err := srv.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
