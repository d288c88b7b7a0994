package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/api"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/config"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/logger"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/scheduler"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/service"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})

	if err := os.MkdirAll(cfg.Ledger.Dir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Ledger.Dir).Msg("Failed to create ledger directory")
	}
	log.Info().Str("dir", cfg.Ledger.Dir).Msg("Using ledger directory")

	// Create services
	ledger := service.NewLedger(cfg.Ledger.Dir, cfg.Ledger.ArchiveSubdir, cfg.Ledger.DeriveConcurrent, log)
	priceService := service.NewPriceService(yahoo.NewFinanceClient(), ledger.Positions, log)

	// Register background jobs
	sched := scheduler.New(log)
	if cfg.Prices.RefreshSchedule != "" {
		if err := sched.AddJob(cfg.Prices.RefreshSchedule, scheduler.NewCacheWarmJob(ledger.Positions)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register cache warm job")
		}
		if err := sched.AddJob(cfg.Prices.RefreshSchedule, scheduler.NewPriceRefreshJob(priceService)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register price refresh job")
		}
	}
	sched.Start()

	// Create router
	router := api.NewRouter(api.Services{
		System:    ledger.System,
		Positions: ledger.Positions,
		Writer:    ledger.Writer,
		Import:    ledger.Import,
		Prices:    priceService,
	}, cfg, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Warm the cache once at startup so the first listing is fast.
	go func() {
		if err := sched.RunNow(scheduler.NewCacheWarmJob(ledger.Positions)); err != nil {
			log.Warn().Err(err).Msg("Initial cache warm failed")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	sched.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
