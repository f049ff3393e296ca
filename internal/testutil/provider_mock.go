package testutil

import (
	"context"
	"iter"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/exchangerates"
	"github.com/rrebane/market-data-loader/internal/marketstack"
)

// FetchSpan records one EndOfDay call.
type FetchSpan struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

// MockPriceProvider is a mock implementation of service.PriceProvider.
// Every call yields the configured pages in order, then MockError if set.
type MockPriceProvider struct {
	mu sync.Mutex
	// MockPages are yielded on every call
	MockPages [][]marketstack.Record
	// MockError is yielded after MockPages
	MockError error
	// Calls tracks the spans requested
	Calls []FetchSpan
	// PagesServed counts pages handed to consumers
	PagesServed int
}

// NewMockPriceProvider creates a mock that yields a single empty page.
func NewMockPriceProvider() *MockPriceProvider {
	return &MockPriceProvider{
		MockPages: [][]marketstack.Record{{}},
	}
}

// EndOfDay records the span and replays the configured pages.
func (m *MockPriceProvider) EndOfDay(_ context.Context, symbol string, start, end time.Time) iter.Seq2[[]marketstack.Record, error] {
	m.mu.Lock()
	m.Calls = append(m.Calls, FetchSpan{Symbol: symbol, Start: start, End: end})
	pages := slices.Clone(m.MockPages)
	mockErr := m.MockError
	m.mu.Unlock()

	return func(yield func([]marketstack.Record, error) bool) {
		for _, page := range pages {
			m.mu.Lock()
			m.PagesServed++
			m.mu.Unlock()
			if !yield(page, nil) {
				return
			}
		}
		if mockErr != nil {
			yield(nil, mockErr)
		}
	}
}

// QueryCount returns how many times EndOfDay was called.
func (m *MockPriceProvider) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// WithPages configures the pages to yield.
func (m *MockPriceProvider) WithPages(pages ...[]marketstack.Record) *MockPriceProvider {
	m.MockPages = pages
	return m
}

// WithError configures an error yielded after the pages.
func (m *MockPriceProvider) WithError(err error) *MockPriceProvider {
	m.MockError = err
	return m
}

// PriceRecord builds a provider record for symbol on date (YYYY-MM-DD).
func PriceRecord(symbol, date string, closePrice float64) marketstack.Record {
	return marketstack.Record{
		Date:     date + "T00:00:00+0000",
		Symbol:   symbol,
		Close:    closePrice,
		Exchange: "XNAS",
	}
}

// RateCall records one CurrencyRate call.
type RateCall struct {
	Date  time.Time
	Codes []string
}

// MockRateProvider is a mock implementation of service.RateProvider.
type MockRateProvider struct {
	mu sync.Mutex
	// MockRates maps YYYY-MM-DD to code to rate
	MockRates map[string]map[string]float64
	// MockSupported is the supported currency list
	MockSupported map[string]string
	// MockError is returned from CurrencyRate
	MockError error
	// MockCurrenciesError is returned from Currencies
	MockCurrenciesError error
	// RateCalls tracks CurrencyRate calls
	RateCalls []RateCall
	// CurrenciesCount tracks Currencies calls
	CurrenciesCount int
}

// NewMockRateProvider creates a mock that supports EUR, USD, GBP and SEK.
func NewMockRateProvider() *MockRateProvider {
	return &MockRateProvider{
		MockRates: map[string]map[string]float64{},
		MockSupported: map[string]string{
			"EUR": "Euro",
			"USD": "United States Dollar",
			"GBP": "British Pound Sterling",
			"SEK": "Swedish Krona",
		},
	}
}

// CurrencyRate returns the configured rates of date for the requested codes.
// Codes without a configured rate are left out of the answer.
func (m *MockRateProvider) CurrencyRate(_ context.Context, date time.Time, codes []string) (exchangerates.Rates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RateCalls = append(m.RateCalls, RateCall{Date: date, Codes: slices.Clone(codes)})
	if m.MockError != nil {
		return exchangerates.Rates{}, m.MockError
	}

	day := calendar.Format(date)
	rates := exchangerates.Rates{
		Date:  day,
		Base:  exchangerates.PivotCurrency,
		Rates: map[string]float64{},
	}
	for _, code := range codes {
		if v, ok := m.MockRates[day][code]; ok {
			rates.Rates[code] = v
		}
	}
	return rates, nil
}

// Currencies returns the configured supported currencies.
func (m *MockRateProvider) Currencies(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CurrenciesCount++
	if m.MockCurrenciesError != nil {
		return nil, m.MockCurrenciesError
	}
	return maps.Clone(m.MockSupported), nil
}

// QueryCount returns how many times CurrencyRate was called.
func (m *MockRateProvider) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RateCalls)
}

// WithRate configures the pivot->code rate on date (YYYY-MM-DD).
func (m *MockRateProvider) WithRate(date, code string, rate float64) *MockRateProvider {
	if m.MockRates[date] == nil {
		m.MockRates[date] = map[string]float64{}
	}
	m.MockRates[date][code] = rate
	return m
}

// WithError configures the error returned from CurrencyRate.
func (m *MockRateProvider) WithError(err error) *MockRateProvider {
	m.MockError = err
	return m
}
