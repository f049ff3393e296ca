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

// StockPriceRepository provides data access methods for the stock_price and
// excluded_date tables.
type StockPriceRepository struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

// NewStockPriceRepository creates a new StockPriceRepository with the provided database connection.
func NewStockPriceRepository(db *sqlx.DB) *StockPriceRepository {
	return &StockPriceRepository{db: db}
}

// WithTx returns a copy of the repository that runs every statement in tx.
func (r *StockPriceRepository) WithTx(tx *sqlx.Tx) *StockPriceRepository {
	return &StockPriceRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *StockPriceRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetCachedDates returns the dates in [startDate, endDate] that already have a
// stock_price row for symbol.
func (r *StockPriceRepository) GetCachedDates(ctx context.Context, symbol string, startDate, endDate time.Time) (calendar.Set, error) {
	query := `
		SELECT date
		FROM stock_price
		WHERE symbol = ?
		AND date >= ?
		AND date <= ?
	`

	dates, err := collectDates(ctx, r.getQuerier(), query, symbol, calendar.Format(startDate), calendar.Format(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query stock_price dates for %s: %w", symbol, err)
	}
	return dates, nil
}

// GetExcludedDates returns the dates in [startDate, endDate] already marked as
// having no data for symbol.
func (r *StockPriceRepository) GetExcludedDates(ctx context.Context, symbol string, startDate, endDate time.Time) (calendar.Set, error) {
	query := `
		SELECT date
		FROM excluded_date
		WHERE symbol = ?
		AND date >= ?
		AND date <= ?
	`

	dates, err := collectDates(ctx, r.getQuerier(), query, symbol, calendar.Format(startDate), calendar.Format(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query excluded_date for %s: %w", symbol, err)
	}
	return dates, nil
}

// GetStockPrices retrieves the stored prices of symbol in [startDate, endDate],
// oldest first.
func (r *StockPriceRepository) GetStockPrices(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.StockPrice, error) {
	if startDate.After(endDate) {
		return nil, fmt.Errorf("startDate (%s) must be before or equal to endDate (%s)",
			calendar.Format(startDate), calendar.Format(endDate))
	}

	q := r.getQuerier()
	query := q.Rebind(`
		SELECT id, date, symbol, close_price, exchange, currency
		FROM stock_price
		WHERE symbol = ?
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC
	`)

	rows, err := q.QueryxContext(ctx, query, symbol, calendar.Format(startDate), calendar.Format(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query stock_price table: %w", err)
	}
	defer rows.Close()

	prices := []model.StockPrice{}

	for rows.Next() {
		var sp model.StockPrice
		var date dbDate

		err := rows.Scan(
			&sp.ID,
			&date,
			&sp.Symbol,
			&sp.ClosePrice,
			&sp.Exchange,
			&sp.Currency,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock_price table results: %w", err)
		}
		sp.Date = time.Time(date)

		prices = append(prices, sp)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock_price table: %w", err)
	}

	return prices, nil
}

// InsertStockPrices inserts new price rows. Rows without an ID get a fresh UUID
// and rows without a currency get model.DefaultCurrency. A row whose
// (date, symbol) already exists fails with apperrors.ErrDuplicateEntry.
func (r *StockPriceRepository) InsertStockPrices(ctx context.Context, prices []model.StockPrice) error {
	q := r.getQuerier()
	query := q.Rebind(`
		INSERT INTO stock_price (id, date, symbol, close_price, exchange, currency)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	for _, sp := range prices {
		if sp.ID == "" {
			sp.ID = uuid.New().String()
		}
		if sp.Currency == "" {
			sp.Currency = model.DefaultCurrency
		}

		_, err := q.ExecContext(ctx, query,
			sp.ID,
			calendar.Format(sp.Date),
			sp.Symbol,
			sp.ClosePrice,
			sp.Exchange,
			sp.Currency,
		)
		if err != nil {
			return fmt.Errorf("failed to insert stock_price %s %s: %w", sp.Symbol, calendar.Format(sp.Date), translateError(err))
		}
	}

	return nil
}

// InsertExcludedDates marks dates as permanently without data.
func (r *StockPriceRepository) InsertExcludedDates(ctx context.Context, excluded []model.ExcludedDate) error {
	q := r.getQuerier()
	query := q.Rebind(`
		INSERT INTO excluded_date (id, date, symbol)
		VALUES (?, ?, ?)
	`)

	for _, ed := range excluded {
		if ed.ID == "" {
			ed.ID = uuid.New().String()
		}

		if _, err := q.ExecContext(ctx, query, ed.ID, calendar.Format(ed.Date), ed.Symbol); err != nil {
			return fmt.Errorf("failed to insert excluded_date %s %s: %w", ed.Symbol, calendar.Format(ed.Date), translateError(err))
		}
	}

	return nil
}
