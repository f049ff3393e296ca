package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/logging"
	"github.com/rrebane/market-data-loader/internal/marketstack"
	"github.com/rrebane/market-data-loader/internal/service"
	"github.com/rrebane/market-data-loader/internal/testutil"
)

// TestNewRouter tests that the routes are mounted behind the middleware chain.
//
// WHY: Handlers are unit-tested directly; this checks the wiring between URL
// patterns, chi URL params and the metrics endpoint.
func TestNewRouter(t *testing.T) {
	today := testutil.Date("2021-04-20")
	db := testutil.SetupTestDB(t)
	prices := testutil.NewMockPriceProvider().WithPages([]marketstack.Record{
		testutil.PriceRecord("AAPL", "2021-04-09", 120.0),
	})
	rates := testutil.NewMockRateProvider()

	router := NewRouter(Services{
		System:   service.NewSystemService(db),
		Quote:    testutil.NewTestQuoteService(t, db, prices, rates, today),
		Stock:    testutil.NewTestStockService(t, db, prices, today),
		Currency: testutil.NewTestCurrencyService(t, db, rates),
	}, &config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}}},
		func() time.Time { return today }, logging.Discard())

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"health", http.MethodGet, "/api/system/health", http.StatusOK},
		{"version", http.MethodGet, "/api/system/version", http.StatusOK},
		{"prices", http.MethodGet, "/api/prices/AAPL?startDate=2021-04-09&endDate=2021-04-09", http.StatusOK},
		{"fill", http.MethodPost, "/api/prices/AAPL/fill?startDate=2021-04-12&endDate=2021-04-12", http.StatusOK},
		{"rates", http.MethodGet, "/api/rates?base=EUR&target=EUR", http.StatusOK},
		{"fill is POST only", http.MethodGet, "/api/prices/AAPL/fill", http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	t.Run("metrics endpoint exposes request counters", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "market_data_http_requests_total") {
			t.Error("Expected HTTP request counter in metrics output")
		}
	})
}
