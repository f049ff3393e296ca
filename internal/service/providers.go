package service

import (
	"context"
	"iter"
	"time"

	"github.com/rrebane/market-data-loader/internal/exchangerates"
	"github.com/rrebane/market-data-loader/internal/marketstack"
)

// PriceProvider yields end-of-day quote pages for a symbol over a date span.
// Implemented by *marketstack.Client.
type PriceProvider interface {
	EndOfDay(ctx context.Context, symbol string, start, end time.Time) iter.Seq2[[]marketstack.Record, error]
}

// RateProvider fetches pivot-currency rates. Implemented by *exchangerates.Client.
type RateProvider interface {
	CurrencyRate(ctx context.Context, date time.Time, codes []string) (exchangerates.Rates, error)
	Currencies(ctx context.Context) (map[string]string, error)
}

var (
	_ PriceProvider = (*marketstack.Client)(nil)
	_ RateProvider  = (*exchangerates.Client)(nil)
)
