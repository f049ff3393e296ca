// Command loader prints the closing prices of one symbol over a date range,
// filling the local cache from the providers first.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rrebane/market-data-loader/internal/api/request"
	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/database"
	"github.com/rrebane/market-data-loader/internal/exchangerates"
	"github.com/rrebane/market-data-loader/internal/logging"
	"github.com/rrebane/market-data-loader/internal/marketstack"
	"github.com/rrebane/market-data-loader/internal/model"
	"github.com/rrebane/market-data-loader/internal/repository"
	"github.com/rrebane/market-data-loader/internal/service"
	"github.com/rrebane/market-data-loader/internal/validation"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("loader", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		query   request.PriceQuery
		verbose bool
	)
	fs.StringVar(&query.Symbol, "symbol", "", "stock symbol, e.g. AAPL (required)")
	fs.StringVar(&query.Currency, "currency", "", "currency to report prices in, e.g. EUR (required)")
	fs.StringVar(&query.StartDate, "start-date", "", "first date, YYYY-MM-DD (default today)")
	fs.StringVar(&query.EndDate, "end-date", "", "last date, YYYY-MM-DD (default today)")
	fs.BoolVar(&verbose, "verbose", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logging.New(level, stderr)

	if query.Symbol == "" || query.Currency == "" {
		log.Error("both --symbol and --currency are required")
		fs.Usage()
		return 2
	}

	params, err := validation.ValidatePriceQuery(query, time.Now())
	if err != nil {
		log.WithError(err).Error("Invalid arguments")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, err := loadPrices(ctx, cfg, params, log)
	if err != nil {
		log.WithError(err).Error("Failed to load prices")
		return 1
	}

	if len(rows) == 0 {
		log.Info("No data for symbol and date range")
		return 0
	}

	if err := printPrices(stdout, rows); err != nil {
		log.WithError(err).Error("Failed to write output")
		return 1
	}
	return 0
}

func loadPrices(ctx context.Context, cfg *config.Config, params validation.PriceParams, log logrus.FieldLogger) ([]model.PriceRow, error) {
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db, log); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	stockService := service.NewStockService(
		db,
		repository.NewStockPriceRepository(db),
		marketstack.NewClient(cfg.MarketStack, log),
		log,
	)
	currencyService := service.NewCurrencyService(
		db,
		repository.NewCurrencyRateRepository(db),
		exchangerates.NewClient(cfg.ExchangeRates, log),
		log,
	)
	quoteService := service.NewQuoteService(stockService, currencyService, log)

	return quoteService.GetPrices(ctx, params.Symbol, params.Currency, params.StartDate, params.EndDate)
}

func printPrices(w io.Writer, rows []model.PriceRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "date\tsymbol\tcurrency\tclose_price\t")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t\n", calendar.Format(row.Date), row.Symbol, row.Currency, row.ClosePrice)
	}
	return tw.Flush()
}
