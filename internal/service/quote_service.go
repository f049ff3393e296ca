package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/model"
)

// QuoteService answers "prices of a symbol in a currency" by composing the
// stock and currency caches.
type QuoteService struct {
	stockService    *StockService
	currencyService *CurrencyService
	log             logrus.FieldLogger
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(stockService *StockService, currencyService *CurrencyService, log logrus.FieldLogger) *QuoteService {
	return &QuoteService{
		stockService:    stockService,
		currencyService: currencyService,
		log:             log,
	}
}

// GetPrices returns the closing prices of symbol in [startDate, endDate]
// converted into currency. The currency of the first stored row is taken as
// the source currency; when it equals currency, or currency is empty, no rate
// is looked up.
func (s *QuoteService) GetPrices(ctx context.Context, symbol, currency string, startDate, endDate time.Time) ([]model.PriceRow, error) {
	prices, err := s.stockService.GetStockPrices(ctx, symbol, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return prices, nil
	}

	source := prices[0].Currency
	if currency == "" || source == currency {
		return prices, nil
	}

	dates := make([]time.Time, len(prices))
	for i, p := range prices {
		dates[i] = p.Date
	}

	rates, err := s.currencyService.GetCurrencyRates(ctx, dates, source, currency)
	if err != nil {
		return nil, err
	}

	return convertPrices(prices, rates, currency)
}

// convertPrices multiplies each close by the rate of its date.
func convertPrices(prices []model.PriceRow, rates []model.RateRow, currency string) ([]model.PriceRow, error) {
	rateByDate := make(map[time.Time]float64, len(rates))
	for _, r := range rates {
		rateByDate[r.Date] = r.Rate
	}

	converted := make([]model.PriceRow, len(prices))
	for i, p := range prices {
		rate, ok := rateByDate[p.Date]
		if !ok {
			return nil, fmt.Errorf("%w: %s->%s on %s", apperrors.ErrRateMissing, p.Currency, currency, calendar.Format(p.Date))
		}

		closePrice := decimal.NewFromFloat(p.ClosePrice).Mul(decimal.NewFromFloat(rate))
		converted[i] = model.PriceRow{
			Date:       p.Date,
			Symbol:     p.Symbol,
			Currency:   currency,
			ClosePrice: closePrice.InexactFloat64(),
		}
	}
	return converted, nil
}
