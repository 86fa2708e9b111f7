/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the finance ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load environment configuration
  2. Configure structured logging
  3. Initialize SQLite store
  4. Pick the exchange-rate gateway (HTTP client or static table)
  5. Wire mutator, materializer, importer, handler, router
  6. Start the recurrence scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides LEDGER_PORT)
  -db      SQLite database path (overrides LEDGER_DB_PATH)
           Use ":memory:" for in-memory database
  -env     Path to a .env file (default: ./.env when present)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, waiting for an in-flight run
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledger.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

ENVIRONMENT:
  See config/config.go for the full list (LEDGER_PORT, LEDGER_DB_PATH,
  CURRENCY_API_URL, SCHEDULER_INTERVAL, LOG_LEVEL, ...).

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/finance-ledger/api"
	"github.com/warp/finance-ledger/config"
	"github.com/warp/finance-ledger/currency"
	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/receipt"
	"github.com/warp/finance-ledger/recurrence"
	"github.com/warp/finance-ledger/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides LEDGER_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides LEDGER_DB_PATH)")
	envPath := flag.String("env", "", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}

	// Logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	// Store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Exchange-rate gateway: HTTP client when configured, static otherwise.
	var gateway currency.Gateway
	if cfg.Currency.BaseURL != "" {
		client := currency.NewClient(currency.ClientConfig{
			BaseURL:    cfg.Currency.BaseURL,
			APIKey:     cfg.Currency.APIKey,
			Timeout:    cfg.Currency.Timeout,
			MaxRetries: cfg.Currency.MaxRetries,
		}, log)
		gateway = currency.NewCached(client, cfg.Currency.CacheTTL)
	} else {
		log.Info().Msg("no currency API configured, using static rates")
		gateway = currency.NewStatic()
	}

	// Core wiring
	mutator := ledger.NewMutator(store, gateway, store, log)
	materializer := recurrence.NewMaterializer(store, mutator, log)
	importer := receipt.NewImporter(mutator, log)

	handler := api.NewHandler(store, store, mutator, materializer, importer, log)
	router := api.NewRouter(handler)

	// Recurrence scheduler
	scheduler := api.NewRecurrenceScheduler(store, materializer, log)
	scheduler.CheckInterval = cfg.Scheduler.CheckInterval
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
