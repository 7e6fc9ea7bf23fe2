/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Configure structured logging (zerolog)
  3. Initialize SQLite store
  4. Wire domain service (authorization, documents, notifications)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: leave.db)
           Use ":memory:" for an in-memory database
  -docs    Directory for attached documents (default: ./documents)
  -pretty  Human-readable console log output

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with in-memory database
  ./server -db=":memory:" -pretty

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

	"github.com/warp/leave-ledger/api"
	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/notify"
	"github.com/warp/leave-ledger/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "leave.db", "SQLite database path")
	docsDir := flag.String("docs", "./documents", "directory for attached documents")
	pretty := flag.Bool("pretty", false, "human-readable console log output")
	flag.Parse()

	// Logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if *pretty {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Domain service
	svc := leave.NewService(store, leave.RoleAuthorizer{})
	svc.Docs = notify.NewFileDocumentStore(*docsDir)
	svc.Notifier = notify.NewLogNotifier(log)

	// Router
	handler := api.NewHandler(svc, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Msg("server starting")
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
