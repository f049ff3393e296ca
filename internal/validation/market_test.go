package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/rrebane/market-data-loader/internal/api/request"
	"github.com/rrebane/market-data-loader/internal/apperrors"
)

func TestValidatePriceQuery(t *testing.T) {
	today := time.Date(2021, 4, 20, 15, 30, 0, 0, time.UTC)
	day := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}

	t.Run("normalizes and defaults dates to today", func(t *testing.T) {
		params, err := ValidatePriceQuery(request.PriceQuery{Symbol: " aapl ", Currency: "eur"}, today)
		if err != nil {
			t.Fatalf("ValidatePriceQuery() returned unexpected error: %v", err)
		}

		if params.Symbol != "AAPL" || params.Currency != "EUR" {
			t.Errorf("Expected AAPL/EUR, got %s/%s", params.Symbol, params.Currency)
		}
		if !params.StartDate.Equal(day("2021-04-20")) || !params.EndDate.Equal(day("2021-04-20")) {
			t.Errorf("Expected both dates today, got %v..%v", params.StartDate, params.EndDate)
		}
	})

	t.Run("clamps future dates to today", func(t *testing.T) {
		params, err := ValidatePriceQuery(request.PriceQuery{
			Symbol: "AAPL", Currency: "USD", StartDate: "2021-04-19", EndDate: "2021-05-31",
		}, today)
		if err != nil {
			t.Fatalf("ValidatePriceQuery() returned unexpected error: %v", err)
		}

		if !params.EndDate.Equal(day("2021-04-20")) {
			t.Errorf("Expected end clamped to today, got %v", params.EndDate)
		}
	})

	t.Run("rejects start after end", func(t *testing.T) {
		_, err := ValidatePriceQuery(request.PriceQuery{
			Symbol: "AAPL", Currency: "USD", StartDate: "2021-04-12", EndDate: "2021-04-09",
		}, today)

		var vErr *Error
		if !errors.As(err, &vErr) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		if _, ok := vErr.Fields["startDate"]; !ok {
			t.Errorf("Expected startDate field error, got %v", vErr.Fields)
		}
	})

	t.Run("empty currency keeps native prices", func(t *testing.T) {
		params, err := ValidatePriceQuery(request.PriceQuery{Symbol: "AAPL"}, today)
		if err != nil {
			t.Fatalf("ValidatePriceQuery() returned unexpected error: %v", err)
		}
		if params.Currency != "" {
			t.Errorf("Expected empty currency, got %q", params.Currency)
		}
		if !params.StartDate.Equal(day("2021-04-20")) || !params.EndDate.Equal(day("2021-04-20")) {
			t.Errorf("Expected both dates to default to today, got %v..%v", params.StartDate, params.EndDate)
		}
	})

	t.Run("collects every invalid field", func(t *testing.T) {
		_, err := ValidatePriceQuery(request.PriceQuery{
			Symbol: "", Currency: "EURO", StartDate: "09/04/2021",
		}, today)

		var vErr *Error
		if !errors.As(err, &vErr) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		for _, field := range []string{"symbol", "currency", "startDate"} {
			if _, ok := vErr.Fields[field]; !ok {
				t.Errorf("Expected %s field error", field)
			}
		}
	})
}

func TestValidateRateQuery(t *testing.T) {
	today := time.Date(2021, 4, 20, 0, 0, 0, 0, time.UTC)

	params, err := ValidateRateQuery(request.RateQuery{
		Base: "usd", Target: "gbp", StartDate: "2021-04-05", EndDate: "2021-04-09",
	}, today)
	if err != nil {
		t.Fatalf("ValidateRateQuery() returned unexpected error: %v", err)
	}
	if params.Base != "USD" || params.Target != "GBP" {
		t.Errorf("Unexpected currencies %+v", params)
	}

	if _, err := ValidateRateQuery(request.RateQuery{Base: "US", Target: "GBP"}, today); !IsValidationError(err) {
		t.Errorf("Expected validation error for short code, got %v", err)
	}
}

func TestValidateCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"usd", "USD", false},
		{" SEK ", "SEK", false},
		{"EURO", "", true},
		{"U1D", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateCurrency(tt.in)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidCurrency) {
					t.Errorf("Expected ErrInvalidCurrency, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ValidateCurrency(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestValidateSymbol(t *testing.T) {
	for _, ok := range []string{"AAPL", "brk.b", "RDS-A", "7203"} {
		if _, err := ValidateSymbol(ok); err != nil {
			t.Errorf("ValidateSymbol(%q) returned unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"", " ", "AAPL;DROP", "ABCDEFGHIJKLMNOP"} {
		if _, err := ValidateSymbol(bad); !errors.Is(err, apperrors.ErrInvalidSymbol) {
			t.Errorf("ValidateSymbol(%q): expected ErrInvalidSymbol, got %v", bad, err)
		}
	}
}
