package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/calendar"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	symbolPattern   = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,14}$`)
)

// ValidateSymbol normalizes a ticker symbol to upper case.
func ValidateSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidSymbol, symbol)
	}
	return symbol, nil
}

// ValidateCurrency normalizes a three letter currency code to upper case.
func ValidateCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currencyPattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidCurrency, code)
	}
	return code, nil
}

// ParseDate parses a YYYY-MM-DD date. An empty value yields fallback.
func ParseDate(raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return calendar.Day(fallback), nil
	}
	d, err := calendar.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidDate, raw)
	}
	return d, nil
}
