package validation

import (
	"errors"
	"strings"
	"time"

	"github.com/rrebane/market-data-loader/internal/api/request"
	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/calendar"
)

// PriceParams is a validated price lookup.
type PriceParams struct {
	Symbol    string
	Currency  string
	StartDate time.Time
	EndDate   time.Time
}

// RateParams is a validated cross-rate lookup.
type RateParams struct {
	Base      string
	Target    string
	StartDate time.Time
	EndDate   time.Time
}

// ValidatePriceQuery checks a price lookup. An empty currency keeps the prices
// in their native currency. Missing dates default to today, the start may not
// be after the end, and both dates are then clamped to today.
func ValidatePriceQuery(req request.PriceQuery, today time.Time) (PriceParams, error) {
	fields := make(map[string]string)

	symbol, err := ValidateSymbol(req.Symbol)
	if err != nil {
		fields["symbol"] = err.Error()
	}
	var currency string
	if strings.TrimSpace(req.Currency) != "" {
		if currency, err = ValidateCurrency(req.Currency); err != nil {
			fields["currency"] = err.Error()
		}
	}
	start, end := validateRange(req.StartDate, req.EndDate, today, fields)

	if len(fields) > 0 {
		return PriceParams{}, &Error{Fields: fields}
	}

	return PriceParams{
		Symbol:    symbol,
		Currency:  currency,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// ValidateRateQuery checks a cross-rate lookup with the same date rules as
// ValidatePriceQuery.
func ValidateRateQuery(req request.RateQuery, today time.Time) (RateParams, error) {
	fields := make(map[string]string)

	base, err := ValidateCurrency(req.Base)
	if err != nil {
		fields["base"] = err.Error()
	}
	target, err := ValidateCurrency(req.Target)
	if err != nil {
		fields["target"] = err.Error()
	}
	start, end := validateRange(req.StartDate, req.EndDate, today, fields)

	if len(fields) > 0 {
		return RateParams{}, &Error{Fields: fields}
	}

	return RateParams{
		Base:      base,
		Target:    target,
		StartDate: start,
		EndDate:   end,
	}, nil
}

func validateRange(rawStart, rawEnd string, today time.Time, fields map[string]string) (time.Time, time.Time) {
	today = calendar.Day(today)

	start, err := ParseDate(rawStart, today)
	if err != nil {
		fields["startDate"] = err.Error()
	}
	end, err := ParseDate(rawEnd, today)
	if err != nil {
		fields["endDate"] = err.Error()
	}
	if _, bad := fields["startDate"]; bad {
		return start, end
	}
	if _, bad := fields["endDate"]; bad {
		return start, end
	}

	if start.After(end) {
		fields["startDate"] = apperrors.ErrInvalidDateRange.Error() + ": start date must be before end date"
		return start, end
	}

	if start.After(today) {
		start = today
	}
	if end.After(today) {
		end = today
	}
	return start, end
}

// IsValidationError reports whether err came from this package.
func IsValidationError(err error) bool {
	var vErr *Error
	return errors.As(err, &vErr)
}
