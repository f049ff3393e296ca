package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/logging"
	"github.com/rrebane/market-data-loader/internal/repository"
	"github.com/rrebane/market-data-loader/internal/service"
)

// NewTestStockService creates a StockService backed by db and prices whose
// "today" is fixed to today.
func NewTestStockService(t *testing.T, db *sqlx.DB, prices service.PriceProvider, today time.Time) *service.StockService {
	t.Helper()

	return service.NewStockService(
		db,
		repository.NewStockPriceRepository(db),
		prices,
		logging.Discard(),
	).WithClock(func() time.Time { return today })
}

// NewTestCurrencyService creates a CurrencyService backed by db and rates.
func NewTestCurrencyService(t *testing.T, db *sqlx.DB, rates service.RateProvider) *service.CurrencyService {
	t.Helper()

	return service.NewCurrencyService(
		db,
		repository.NewCurrencyRateRepository(db),
		rates,
		logging.Discard(),
	)
}

// NewTestQuoteService wires a QuoteService over both mocks.
func NewTestQuoteService(
	t *testing.T,
	db *sqlx.DB,
	prices service.PriceProvider,
	rates service.RateProvider,
	today time.Time,
) *service.QuoteService {
	t.Helper()

	return service.NewQuoteService(
		NewTestStockService(t, db, prices, today),
		NewTestCurrencyService(t, db, rates),
		logging.Discard(),
	)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// Date parses a YYYY-MM-DD literal and panics on malformed input.
//
// Example usage:
//
//	friday := testutil.Date("2021-04-09")
func Date(s string) time.Time {
	d, err := calendar.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Dates parses several YYYY-MM-DD literals.
func Dates(s ...string) []time.Time {
	dates := make([]time.Time, len(s))
	for i, v := range s {
		dates[i] = Date(v)
	}
	return dates
}
