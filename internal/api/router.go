package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/rrebane/market-data-loader/internal/api/handlers"
	custommiddleware "github.com/rrebane/market-data-loader/internal/api/middleware"
	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/metrics"
	"github.com/rrebane/market-data-loader/internal/service"
)

// Services groups the services the router exposes.
type Services struct {
	System   *service.SystemService
	Quote    *service.QuoteService
	Stock    *service.StockService
	Currency *service.CurrencyService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, now handlers.Clock, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	r.Handle("/metrics", metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		marketHandler := handlers.NewMarketHandler(svc.Quote, svc.Stock, svc.Currency, now, log)

		r.Route("/prices/{symbol}", func(r chi.Router) {
			r.Get("/", marketHandler.Prices)
			r.Post("/fill", marketHandler.FillPrices)
		})

		r.Get("/rates", marketHandler.Rates)
	})

	return r
}
