package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dailybid/internal/clock"
	"dailybid/internal/config"
	"dailybid/internal/handler"
	"dailybid/internal/service"
	"dailybid/internal/store"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type application struct {
	config        *config.Config
	logger        *log.Logger
	db            *sql.DB
	redisClient   *redis.Client
	clk           clock.Clock
	ledgerService *service.LedgerService
	bidService    *service.BidService
	server        *http.Server
	shutdownChan  chan struct{}
	schedulerDone chan struct{}
}

func main() {
	logger := log.New(os.Stdout, "", log.Ldate|log.Ltime|log.Lshortfile)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.RolloverCheckInterval <= 0 {
		logger.Fatalf("RolloverCheckInterval must be a positive duration. Check configuration.")
	}

	clk, err := clock.NewSystemClock(cfg.Timezone)
	if err != nil {
		logger.Fatalf("Failed to initialize clock: %v", err)
	}

	db, err := store.ConnectDB(cfg.DBDriver, cfg.DBDataSourceName)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Printf("Error closing database: %v", err)
		}
	}()

	if err := store.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Printf("Error closing Redis client: %v", err)
		}
	}()

	dbStore := store.NewDBStore(db)
	redisStore := store.NewRedisStore(redisClient)
	ledgerService := service.NewLedgerService(logger, dbStore, redisStore, clk, cfg)
	bidService := service.NewBidService(logger, dbStore, redisStore, ledgerService, clk, cfg)

	app := &application{
		config:        cfg,
		logger:        logger,
		db:            db,
		redisClient:   redisClient,
		clk:           clk,
		ledgerService: ledgerService,
		bidService:    bidService,
		shutdownChan:  make(chan struct{}),
		schedulerDone: make(chan struct{}),
	}

	go app.runRolloverScheduler()

	router := handler.NewRouter(logger, ledgerService, bidService, clk, cfg.AdminAPIKey)

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     logger,
	}

	app.serve()
}

func (app *application) serve() {
	app.logger.Printf("Starting server on %s (auction timezone %s)", app.server.Addr, app.config.Timezone)

	errChan := make(chan error)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		app.logger.Fatalf("Server error: %v", err)
	case sig := <-quit:
		app.logger.Printf("Received signal %s. Shutting down server...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app.logger.Println("Signaling rollover scheduler to stop...")
	close(app.shutdownChan)
	select {
	case <-app.schedulerDone:
		app.logger.Println("Rollover scheduler stopped.")
	case <-time.After(10 * time.Second):
		app.logger.Println("Rollover scheduler did not stop in time.")
	}

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Printf("Graceful server shutdown failed: %v", err)
	} else {
		app.logger.Println("Server gracefully stopped.")
	}

	app.logger.Println("Application shut down complete.")
}

// runRolloverScheduler re-runs the idempotent day rollover on a short
// interval. Most ticks find nothing to do; the tick after midnight in the
// reference timezone performs the transition. A failed run is retried on
// the next tick, and request paths self-heal through EnsureLiveItem in the
// meantime.
func (app *application) runRolloverScheduler() {
	defer close(app.schedulerDone)

	app.logger.Println("Scheduler: running initial rollover.")
	app.runRolloverOnce()

	ticker := time.NewTicker(app.config.RolloverCheckInterval)
	defer ticker.Stop()

	app.logger.Printf("Rollover scheduler started. Will check every %s.", app.config.RolloverCheckInterval.String())

	for {
		select {
		case <-ticker.C:
			app.runRolloverOnce()
		case <-app.shutdownChan:
			app.logger.Println("Scheduler: received shutdown signal. Stopping...")
			return
		}
	}
}

func (app *application) runRolloverOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := app.ledgerService.Rollover(ctx, app.clk.Today()); err != nil {
		app.logger.Printf("Scheduler: rollover failed (will retry next tick): %v", err)
	}
}
