package apperrors

import "errors"

// Configuration errors are raised before any network call is made.
var (
	// ErrMissingAccessKey indicates that a provider credential is not configured.
	ErrMissingAccessKey = errors.New("environment variable missing")

	// ErrUnsupportedDriver indicates that the configured database driver is unknown.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Provider errors wrap every failure reported by an external data provider.
var (
	// ErrProviderRequest indicates a transport failure or a provider-reported rejection.
	ErrProviderRequest = errors.New("provider request failed")

	// ErrUnsupportedCurrency indicates that the rate provider does not know a currency code.
	ErrUnsupportedCurrency = errors.New("currency not supported")

	// ErrRateMissing indicates that a rate response did not contain a requested currency.
	ErrRateMissing = errors.New("rate missing from provider response")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Validation errors for required fields
	ErrInvalidSymbol   = errors.New("symbol is required")
	ErrInvalidCurrency = errors.New("currency must be a three letter code")
	ErrInvalidDate     = errors.New("date must use the YYYY-MM-DD format")
)
