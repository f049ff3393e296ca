package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/model"
	"github.com/rrebane/market-data-loader/internal/repository"
	"github.com/rrebane/market-data-loader/internal/testutil"
)

// TestCurrencyRateRepository tests rate storage keyed by (date, base, target).
func TestCurrencyRateRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("cached dates are per currency pair", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.CreateCurrencyRate(t, db, "EUR", "USD", testutil.Date("2021-04-08"), 1.19)
		testutil.CreateCurrencyRate(t, db, "EUR", "GBP", testutil.Date("2021-04-09"), 0.87)
		repo := repository.NewCurrencyRateRepository(db)

		// Execute
		dates, err := repo.GetCachedDates(ctx, "EUR", "USD", testutil.Date("2021-04-01"), testutil.Date("2021-04-30"))
		if err != nil {
			t.Fatalf("GetCachedDates() returned unexpected error: %v", err)
		}

		// Assert
		if len(dates) != 1 || !dates.Has(testutil.Date("2021-04-08")) {
			t.Errorf("Expected only 2021-04-08, got %v", dates.Sorted())
		}
	})

	t.Run("inserts and reads back ascending", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		repo := repository.NewCurrencyRateRepository(db)

		// Execute
		err := repo.InsertCurrencyRates(ctx, []model.CurrencyRate{
			{Date: testutil.Date("2021-04-09"), BaseCurrency: "EUR", TargetCurrency: "USD", Rate: 1.18},
			{Date: testutil.Date("2021-04-08"), BaseCurrency: "EUR", TargetCurrency: "USD", Rate: 1.19},
		})
		if err != nil {
			t.Fatalf("InsertCurrencyRates() returned unexpected error: %v", err)
		}
		rates, err := repo.GetCurrencyRates(ctx, "EUR", "USD", testutil.Date("2021-04-01"), testutil.Date("2021-04-30"))
		if err != nil {
			t.Fatalf("GetCurrencyRates() returned unexpected error: %v", err)
		}

		// Assert
		if len(rates) != 2 {
			t.Fatalf("Expected 2 rates, got %d", len(rates))
		}
		if rates[0].Rate != 1.19 || rates[1].Rate != 1.18 {
			t.Errorf("Unexpected order %+v", rates)
		}
	})

	t.Run("duplicate pair and date is rejected", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.CreateCurrencyRate(t, db, "EUR", "USD", testutil.Date("2021-04-09"), 1.18)
		repo := repository.NewCurrencyRateRepository(db)

		// Execute
		err := repo.InsertCurrencyRates(ctx, []model.CurrencyRate{
			{Date: testutil.Date("2021-04-09"), BaseCurrency: "EUR", TargetCurrency: "USD", Rate: 1.2},
		})

		// Assert
		if !errors.Is(err, apperrors.ErrDuplicateEntry) {
			t.Errorf("Expected ErrDuplicateEntry, got %v", err)
		}
	})

	t.Run("postgres placeholders are rebound", func(t *testing.T) {
		// Setup
		db, mock := newMockDB(t, "postgres")
		mock.ExpectQuery(`target_currency = \$2`).
			WithArgs("EUR", "USD", "2021-04-01", "2021-04-30").
			WillReturnRows(sqlmock.NewRows([]string{"date"}).AddRow("2021-04-08"))
		repo := repository.NewCurrencyRateRepository(db)

		// Execute
		dates, err := repo.GetCachedDates(ctx, "EUR", "USD", testutil.Date("2021-04-01"), testutil.Date("2021-04-30"))

		// Assert
		if err != nil {
			t.Fatalf("GetCachedDates() returned unexpected error: %v", err)
		}
		if !dates.Has(testutil.Date("2021-04-08")) {
			t.Errorf("Expected 2021-04-08, got %v", dates.Sorted())
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}
