package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/database"
	"github.com/rrebane/market-data-loader/internal/exchangerates"
	"github.com/rrebane/market-data-loader/internal/metrics"
	"github.com/rrebane/market-data-loader/internal/model"
	"github.com/rrebane/market-data-loader/internal/repository"
)

// CurrencyService keeps pivot-expressed rates cached and derives cross rates
// from them.
type CurrencyService struct {
	db       *sqlx.DB
	rateRepo *repository.CurrencyRateRepository
	rates    RateProvider
	log      logrus.FieldLogger
}

// NewCurrencyService creates a new CurrencyService with the provided dependencies.
func NewCurrencyService(
	db *sqlx.DB,
	rateRepo *repository.CurrencyRateRepository,
	rates RateProvider,
	log logrus.FieldLogger,
) *CurrencyService {
	return &CurrencyService{
		db:       db,
		rateRepo: rateRepo,
		rates:    rates,
		log:      log,
	}
}

// GetCurrencyRates fills the cache for both currencies on dates and returns
// the baseCurrency->targetCurrency rate per date.
func (s *CurrencyService) GetCurrencyRates(ctx context.Context, dates []time.Time, baseCurrency, targetCurrency string) ([]model.RateRow, error) {
	s.log.WithFields(logrus.Fields{
		"base":   baseCurrency,
		"target": targetCurrency,
	}).Info("Get currency rates")

	if _, err := s.EnsureRates(ctx, dates, baseCurrency, targetCurrency); err != nil {
		return nil, err
	}
	return s.ReadRates(ctx, dates, baseCurrency, targetCurrency)
}

// EnsureRates stores a pivot->currency rate for every date in dates for both
// currencyA and currencyB. It returns the number of rows inserted.
//
// currencyB is checked against the provider's supported currencies when none
// of its rates in range are cached yet. Dates without a provider rate are not
// remembered and are requested again on the next call. Each date is committed
// in its own transaction.
func (s *CurrencyService) EnsureRates(ctx context.Context, dates []time.Time, currencyA, currencyB string) (int, error) {
	start, end, ok := calendar.SpanOf(dates)
	if !ok {
		return 0, nil
	}

	cachedB, err := s.rateRepo.GetCachedDates(ctx, exchangerates.PivotCurrency, currencyB, start, end)
	if err != nil {
		return 0, err
	}

	if len(cachedB) == 0 {
		if err := s.validateCurrency(ctx, currencyB); err != nil {
			return 0, err
		}
	}

	cachedA, err := s.rateRepo.GetCachedDates(ctx, exchangerates.PivotCurrency, currencyA, start, end)
	if err != nil {
		return 0, err
	}

	codes := []string{currencyA, currencyB}
	if currencyA == currencyB {
		codes = codes[:1]
	}

	inserted := 0
	for _, date := range calendar.NewSet(dates...).Sorted() {
		if cachedA.Has(date) && cachedB.Has(date) {
			continue
		}

		resp, err := s.rates.CurrencyRate(ctx, date, codes)
		if err != nil {
			return inserted, err
		}

		rows, err := s.buildMissingRates(resp, date, codes, cachedA, cachedB, currencyA)
		if err != nil {
			return inserted, err
		}

		err = database.WithinTx(ctx, s.db, func(tx *sqlx.Tx) error {
			return s.rateRepo.WithTx(tx).InsertCurrencyRates(ctx, rows)
		})
		if err != nil {
			return inserted, err
		}
		inserted += len(rows)
		metrics.RecordRowsInserted(metrics.KindCurrencyRate, len(rows))
	}

	return inserted, nil
}

// buildMissingRates turns a provider answer into rows for the sides not yet
// cached on date.
func (s *CurrencyService) buildMissingRates(
	resp exchangerates.Rates,
	date time.Time,
	codes []string,
	cachedA, cachedB calendar.Set,
	currencyA string,
) ([]model.CurrencyRate, error) {
	var rows []model.CurrencyRate
	for _, code := range codes {
		cached := cachedB
		if code == currencyA {
			cached = cachedA
		}
		if cached.Has(date) {
			continue
		}

		rate, err := resp.Rate(code)
		if err != nil {
			return nil, err
		}
		rows = append(rows, model.CurrencyRate{
			Date:           date,
			BaseCurrency:   resp.Base,
			TargetCurrency: code,
			Rate:           rate,
		})
	}
	return rows, nil
}

func (s *CurrencyService) validateCurrency(ctx context.Context, code string) error {
	supported, err := s.rates.Currencies(ctx)
	if err != nil {
		return err
	}
	if _, ok := supported[code]; !ok {
		return fmt.Errorf("%w: target currency '%s'", apperrors.ErrUnsupportedCurrency, code)
	}
	return nil
}

// ReadRates derives baseCurrency->targetCurrency for each of dates from the
// cached pivot rates as rate(pivot->target) / rate(pivot->base). Dates missing
// either leg are left out. Derived rates are never stored.
func (s *CurrencyService) ReadRates(ctx context.Context, dates []time.Time, baseCurrency, targetCurrency string) ([]model.RateRow, error) {
	start, end, ok := calendar.SpanOf(dates)
	if !ok {
		return []model.RateRow{}, nil
	}

	baseRates, err := s.rateRepo.GetCurrencyRates(ctx, exchangerates.PivotCurrency, baseCurrency, start, end)
	if err != nil {
		return nil, err
	}
	targetRates, err := s.rateRepo.GetCurrencyRates(ctx, exchangerates.PivotCurrency, targetCurrency, start, end)
	if err != nil {
		return nil, err
	}

	wanted := calendar.NewSet(dates...)
	baseByDate := make(map[time.Time]float64, len(baseRates))
	for _, r := range baseRates {
		baseByDate[r.Date] = r.Rate
	}

	rows := []model.RateRow{}
	for _, r := range targetRates {
		if !wanted.Has(r.Date) {
			continue
		}
		baseRate, ok := baseByDate[r.Date]
		if !ok || baseRate == 0 {
			continue
		}

		rate := decimal.NewFromFloat(r.Rate).Div(decimal.NewFromFloat(baseRate))
		rows = append(rows, model.RateRow{
			Date:           r.Date,
			BaseCurrency:   baseCurrency,
			TargetCurrency: targetCurrency,
			Rate:           rate.InexactFloat64(),
		})
	}
	return rows, nil
}
