package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/queueiq/internal/adapter/fsm"
	"github.com/neomorfeo/queueiq/internal/adapter/otel"
	"github.com/neomorfeo/queueiq/internal/adapter/river"
	"github.com/neomorfeo/queueiq/internal/adapter/sqlite"
	"github.com/neomorfeo/queueiq/internal/app"
	"github.com/neomorfeo/queueiq/internal/domain"

	handler "github.com/neomorfeo/queueiq/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("queueiq: %v", err)
	}
}

func run() error {
	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "queueiq.db")

	ctx := context.Background()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// --- Adapters (out) ---
	sqlDB, err := otel.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	db, err := sqlite.NewFromDB(sqlDB)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	defer db.Close()

	riverClient, err := river.Setup(ctx, db.DB())
	if err != nil {
		return fmt.Errorf("river setup: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			log.Printf("river stop: %v", err)
		}
	}()

	publisher := otel.NewTracingPublisher(river.NewPublisher(riverClient))
	tickets := otel.NewTracingTicketRepository(db.Tickets())

	// --- Application ---
	clock := app.SystemClock()
	ticketFSM := fsm.New(domain.TicketTransitions)
	sessionFSM := fsm.New(domain.SessionTransitions)

	services := handler.Services{
		Admin:     app.NewAdminService(db.Queues(), db.Resources(), clock),
		Tickets:   app.NewTicketService(db.Queues(), tickets, db.Sessions(), db.History(), publisher, ticketFSM, clock),
		Dispatch:  app.NewDispatcher(db.Queues(), tickets, db.History(), publisher, ticketFSM, clock),
		Sessions:  app.NewSessionService(tickets, db.Sessions(), db.Resources(), db.History(), publisher, ticketFSM, sessionFSM, clock),
		Estimator: app.NewEstimator(db.Queues(), tickets, db.Sessions()),
	}

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("queueiq", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("queueiq", "0.1.0"))
	handler.Register(api, services)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("queueiq listening on :%s", port)
		log.Printf("API docs: http://localhost:%s/docs", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Println("stopped")
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
