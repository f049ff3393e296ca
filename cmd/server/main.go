package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rrebane/market-data-loader/internal/api"
	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/database"
	"github.com/rrebane/market-data-loader/internal/exchangerates"
	"github.com/rrebane/market-data-loader/internal/logging"
	"github.com/rrebane/market-data-loader/internal/marketstack"
	"github.com/rrebane/market-data-loader/internal/repository"
	"github.com/rrebane/market-data-loader/internal/scheduler"
	"github.com/rrebane/market-data-loader/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", nil).Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.New(cfg.Log.Level, nil)

	// Open database connection
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.WithField("driver", cfg.Database.Driver).Info("Connected to database")

	if err := database.Migrate(db, log); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Create repositories
	stockRepo := repository.NewStockPriceRepository(db)
	rateRepo := repository.NewCurrencyRateRepository(db)

	// Create services
	systemService := service.NewSystemService(db)
	stockService := service.NewStockService(
		db,
		stockRepo,
		marketstack.NewClient(cfg.MarketStack, log),
		log,
	)
	currencyService := service.NewCurrencyService(
		db,
		rateRepo,
		exchangerates.NewClient(cfg.ExchangeRates, log),
		log,
	)
	quoteService := service.NewQuoteService(stockService, currencyService, log)

	// Scheduled refresh of the watch list
	refresher, err := scheduler.New(cfg.Refresh, quoteService, log)
	if err != nil {
		log.Fatalf("Failed to configure scheduler: %v", err)
	}
	refresher.Start()

	// Create router
	router := api.NewRouter(api.Services{
		System:   systemService,
		Quote:    quoteService,
		Stock:    stockService,
		Currency: currencyService,
	}, cfg, time.Now, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	select {
	case <-refresher.Stop().Done():
	case <-ctx.Done():
		log.Warn("Scheduled refresh still running at shutdown")
	}

	log.Info("Server exited")
}
