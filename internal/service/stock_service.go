package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/database"
	"github.com/rrebane/market-data-loader/internal/marketstack"
	"github.com/rrebane/market-data-loader/internal/metrics"
	"github.com/rrebane/market-data-loader/internal/model"
	"github.com/rrebane/market-data-loader/internal/repository"
)

// StockService keeps the stock_price cache complete and reads from it.
type StockService struct {
	db        *sqlx.DB
	stockRepo *repository.StockPriceRepository
	prices    PriceProvider
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewStockService creates a new StockService with the provided dependencies.
func NewStockService(
	db *sqlx.DB,
	stockRepo *repository.StockPriceRepository,
	prices PriceProvider,
	log logrus.FieldLogger,
) *StockService {
	return &StockService{
		db:        db,
		stockRepo: stockRepo,
		prices:    prices,
		log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the source of "today". Used by tests.
func (s *StockService) WithClock(now func() time.Time) *StockService {
	s.now = now
	return s
}

// GetStockPrices fills the cache for symbol over [startDate, endDate] and
// returns the stored prices, oldest first.
func (s *StockService) GetStockPrices(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.PriceRow, error) {
	s.log.WithFields(logrus.Fields{
		"symbol": symbol,
		"start":  calendar.Format(startDate),
		"end":    calendar.Format(endDate),
	}).Info("Get stock prices")

	if _, err := s.EnsurePrices(ctx, symbol, startDate, endDate); err != nil {
		return nil, err
	}
	return s.ReadPrices(ctx, symbol, startDate, endDate)
}

// EnsurePrices makes every business date of symbol in [startDate, endDate]
// present in the store either as a price or as an excluded date, except dates
// from today on which stay absent until the provider publishes them.
//
// Only the span between the first and last missing date is requested from the
// provider. Each page is committed in its own transaction so progress survives
// a failure on a later page; exclusions are written only after the provider
// sequence was fully consumed.
func (s *StockService) EnsurePrices(ctx context.Context, symbol string, startDate, endDate time.Time) (model.FillResult, error) {
	result := model.FillResult{Symbol: symbol}

	startDate, endDate = calendar.Day(startDate), calendar.Day(endDate)
	if startDate.After(endDate) {
		return result, fmt.Errorf("%w: %s is after %s", apperrors.ErrInvalidDateRange,
			calendar.Format(startDate), calendar.Format(endDate))
	}

	requested := calendar.BusinessDatesInRange(startDate, endDate)
	result.Requested = len(requested)
	if len(requested) == 0 {
		return result, nil
	}

	cached, err := s.stockRepo.GetCachedDates(ctx, symbol, startDate, endDate)
	if err != nil {
		return result, err
	}
	excluded, err := s.stockRepo.GetExcludedDates(ctx, symbol, startDate, endDate)
	if err != nil {
		return result, err
	}

	missing := calendar.MissingDates(requested, cached, excluded)
	result.Missing = len(missing)

	spanStart, spanEnd, ok := missing.Span()
	if !ok {
		s.log.WithField("symbol", symbol).Debug("All requested dates are cached")
		return result, nil
	}
	result.SpanStart, result.SpanEnd = spanStart, spanEnd

	for page, err := range s.prices.EndOfDay(ctx, symbol, spanStart, spanEnd) {
		if err != nil {
			return result, err
		}
		result.PagesFetched++

		rows, err := s.filterMissingPrices(page, missing, symbol)
		if err != nil {
			return result, err
		}
		if len(rows) == 0 {
			continue
		}

		err = database.WithinTx(ctx, s.db, func(tx *sqlx.Tx) error {
			return s.stockRepo.WithTx(tx).InsertStockPrices(ctx, rows)
		})
		if err != nil {
			return result, err
		}
		result.Inserted += len(rows)
		metrics.RecordRowsInserted(metrics.KindStockPrice, len(rows))
	}

	exclusions := s.buildExclusions(missing, symbol)
	result.Pending = len(missing) - len(exclusions)

	if len(exclusions) > 0 {
		err := database.WithinTx(ctx, s.db, func(tx *sqlx.Tx) error {
			return s.stockRepo.WithTx(tx).InsertExcludedDates(ctx, exclusions)
		})
		if err != nil {
			return result, err
		}
		result.Excluded = len(exclusions)
		metrics.RecordRowsInserted(metrics.KindExcludedDate, len(exclusions))
	}

	s.log.WithFields(logrus.Fields{
		"symbol":   symbol,
		"pages":    result.PagesFetched,
		"inserted": result.Inserted,
		"excluded": result.Excluded,
		"pending":  result.Pending,
	}).Debug("Filled missing stock prices")

	return result, nil
}

// filterMissingPrices converts the records whose date is still missing and
// removes those dates from missing. Records for dates already cached or
// outside the requested business dates are dropped.
func (s *StockService) filterMissingPrices(page []marketstack.Record, missing calendar.Set, symbol string) ([]model.StockPrice, error) {
	var rows []model.StockPrice
	for _, rec := range page {
		date, err := rec.Day()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrProviderRequest, err)
		}
		if !missing.Has(date) {
			continue
		}

		recSymbol := rec.Symbol
		if recSymbol == "" {
			recSymbol = symbol
		}
		rows = append(rows, model.StockPrice{
			Date:       date,
			Symbol:     recSymbol,
			ClosePrice: rec.Close,
			Exchange:   rec.Exchange,
		})
		missing.Remove(date)
	}
	return rows, nil
}

// buildExclusions returns the still-missing dates that lie strictly before
// today. Today and later may still be published.
func (s *StockService) buildExclusions(missing calendar.Set, symbol string) []model.ExcludedDate {
	today := calendar.Day(s.now())

	var exclusions []model.ExcludedDate
	for _, d := range missing.Sorted() {
		if !d.Before(today) {
			continue
		}
		exclusions = append(exclusions, model.ExcludedDate{Date: d, Symbol: symbol})
	}
	return exclusions
}

// ReadPrices returns the stored prices of symbol in [startDate, endDate]
// without contacting the provider.
func (s *StockService) ReadPrices(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.PriceRow, error) {
	prices, err := s.stockRepo.GetStockPrices(ctx, symbol, calendar.Day(startDate), calendar.Day(endDate))
	if err != nil {
		return nil, err
	}

	rows := make([]model.PriceRow, len(prices))
	for i, p := range prices {
		rows[i] = model.PriceRow{
			Date:       p.Date,
			Symbol:     p.Symbol,
			Currency:   p.Currency,
			ClosePrice: p.ClosePrice,
		}
	}
	return rows, nil
}
