package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/model"
)

// CurrencyRateRepository provides data access methods for the currency_rate table.
type CurrencyRateRepository struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

// NewCurrencyRateRepository creates a new CurrencyRateRepository with the provided database connection.
func NewCurrencyRateRepository(db *sqlx.DB) *CurrencyRateRepository {
	return &CurrencyRateRepository{db: db}
}

// WithTx returns a copy of the repository that runs every statement in tx.
func (r *CurrencyRateRepository) WithTx(tx *sqlx.Tx) *CurrencyRateRepository {
	return &CurrencyRateRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *CurrencyRateRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetCachedDates returns the dates in [startDate, endDate] that have a
// baseCurrency->targetCurrency rate.
func (r *CurrencyRateRepository) GetCachedDates(ctx context.Context, baseCurrency, targetCurrency string, startDate, endDate time.Time) (calendar.Set, error) {
	query := `
		SELECT date
		FROM currency_rate
		WHERE base_currency = ?
		AND target_currency = ?
		AND date >= ?
		AND date <= ?
	`

	dates, err := collectDates(ctx, r.getQuerier(), query,
		baseCurrency, targetCurrency, calendar.Format(startDate), calendar.Format(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query currency_rate dates for %s->%s: %w", baseCurrency, targetCurrency, err)
	}
	return dates, nil
}

// GetCurrencyRates retrieves the stored baseCurrency->targetCurrency rates in
// [startDate, endDate], oldest first.
func (r *CurrencyRateRepository) GetCurrencyRates(ctx context.Context, baseCurrency, targetCurrency string, startDate, endDate time.Time) ([]model.CurrencyRate, error) {
	q := r.getQuerier()
	query := q.Rebind(`
		SELECT id, date, base_currency, target_currency, rate
		FROM currency_rate
		WHERE base_currency = ?
		AND target_currency = ?
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC
	`)

	rows, err := q.QueryxContext(ctx, query,
		baseCurrency, targetCurrency, calendar.Format(startDate), calendar.Format(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query currency_rate table: %w", err)
	}
	defer rows.Close()

	rates := []model.CurrencyRate{}

	for rows.Next() {
		var cr model.CurrencyRate
		var date dbDate

		if err := rows.Scan(&cr.ID, &date, &cr.BaseCurrency, &cr.TargetCurrency, &cr.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan currency_rate table results: %w", err)
		}
		cr.Date = time.Time(date)

		rates = append(rates, cr)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currency_rate table: %w", err)
	}

	return rates, nil
}

// InsertCurrencyRates inserts new rate rows. A row whose (date, base, target)
// already exists fails with apperrors.ErrDuplicateEntry.
func (r *CurrencyRateRepository) InsertCurrencyRates(ctx context.Context, rates []model.CurrencyRate) error {
	q := r.getQuerier()
	query := q.Rebind(`
		INSERT INTO currency_rate (id, date, base_currency, target_currency, rate)
		VALUES (?, ?, ?, ?, ?)
	`)

	for _, cr := range rates {
		if cr.ID == "" {
			cr.ID = uuid.New().String()
		}

		_, err := q.ExecContext(ctx, query,
			cr.ID,
			calendar.Format(cr.Date),
			cr.BaseCurrency,
			cr.TargetCurrency,
			cr.Rate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert currency_rate %s->%s %s: %w",
				cr.BaseCurrency, cr.TargetCurrency, calendar.Format(cr.Date), translateError(err))
		}
	}

	return nil
}
