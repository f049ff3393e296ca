package testutil

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/model"
)

// StockPriceBuilder provides a fluent interface for creating cached prices.
//
// Example usage:
//
//	price := testutil.NewStockPrice("AAPL", testutil.Date("2021-04-09")).
//	    WithClosePrice(133.0).
//	    Build(t, db)
type StockPriceBuilder struct {
	ID         string
	Date       time.Time
	Symbol     string
	ClosePrice float64
	Exchange   string
	Currency   string
}

// NewStockPrice creates a StockPriceBuilder with sensible defaults.
func NewStockPrice(symbol string, date time.Time) *StockPriceBuilder {
	return &StockPriceBuilder{
		ID:         MakeID(),
		Date:       date,
		Symbol:     symbol,
		ClosePrice: 100.0,
		Exchange:   "XNAS",
		Currency:   model.DefaultCurrency,
	}
}

// WithClosePrice sets a custom close price.
func (b *StockPriceBuilder) WithClosePrice(price float64) *StockPriceBuilder {
	b.ClosePrice = price
	return b
}

// WithCurrency sets a custom currency.
func (b *StockPriceBuilder) WithCurrency(currency string) *StockPriceBuilder {
	b.Currency = currency
	return b
}

// Build creates the price in the database and returns it.
func (b *StockPriceBuilder) Build(t *testing.T, db *sqlx.DB) model.StockPrice {
	t.Helper()

	query := `
		INSERT INTO stock_price (id, date, symbol, close_price, exchange, currency)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, calendar.Format(b.Date), b.Symbol, b.ClosePrice, b.Exchange, b.Currency)
	if err != nil {
		t.Fatalf("Failed to create test stock price: %v", err)
	}

	return model.StockPrice{
		ID:         b.ID,
		Date:       b.Date,
		Symbol:     b.Symbol,
		ClosePrice: b.ClosePrice,
		Exchange:   b.Exchange,
		Currency:   b.Currency,
	}
}

// CreateStockPrices caches a default price for symbol on each date.
func CreateStockPrices(t *testing.T, db *sqlx.DB, symbol string, dates ...time.Time) []model.StockPrice {
	t.Helper()

	prices := make([]model.StockPrice, len(dates))
	for i, d := range dates {
		prices[i] = NewStockPrice(symbol, d).WithClosePrice(100.0 + float64(i)).Build(t, db)
	}
	return prices
}

// CreateExcludedDate marks date as having no data for symbol.
func CreateExcludedDate(t *testing.T, db *sqlx.DB, symbol string, date time.Time) model.ExcludedDate {
	t.Helper()

	ed := model.ExcludedDate{ID: MakeID(), Date: date, Symbol: symbol}

	query := `INSERT INTO excluded_date (id, date, symbol) VALUES (?, ?, ?)`
	if _, err := db.Exec(query, ed.ID, calendar.Format(ed.Date), ed.Symbol); err != nil {
		t.Fatalf("Failed to create test excluded date: %v", err)
	}
	return ed
}

// CreateCurrencyRate caches a base->target rate on date.
func CreateCurrencyRate(t *testing.T, db *sqlx.DB, base, target string, date time.Time, rate float64) model.CurrencyRate {
	t.Helper()

	cr := model.CurrencyRate{
		ID:             MakeID(),
		Date:           date,
		BaseCurrency:   base,
		TargetCurrency: target,
		Rate:           rate,
	}

	query := `
		INSERT INTO currency_rate (id, date, base_currency, target_currency, rate)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := db.Exec(query, cr.ID, calendar.Format(cr.Date), cr.BaseCurrency, cr.TargetCurrency, cr.Rate); err != nil {
		t.Fatalf("Failed to create test currency rate: %v", err)
	}
	return cr
}
