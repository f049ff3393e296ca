package marketstack

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/logging"
)

const singlePage = `{
	"pagination": {"limit": 2, "offset": 0, "count": 2, "total": 2},
	"data": [
		{"close": 10.1, "symbol": "AAPL", "exchange": "XNAS", "date": "2021-04-09T00:00:00+0000"},
		{"close": 20.2, "symbol": "AAPL", "exchange": "XNAS", "date": "2021-04-10T00:00:00+0000"}
	]
}`

var multiPage = map[string]string{
	"0": `{
		"pagination": {"limit": 2, "offset": 0, "count": 2, "total": 4},
		"data": [
			{"close": 10.1, "symbol": "AAPL", "exchange": "XNAS", "date": "2021-04-09T00:00:00+0000"},
			{"close": 20.2, "symbol": "AAPL", "exchange": "XNAS", "date": "2021-04-10T00:00:00+0000"}
		]
	}`,
	"2": `{
		"pagination": {"limit": 2, "offset": 2, "count": 2, "total": 4},
		"data": [
			{"close": 30.3, "symbol": "AAPL", "exchange": "XNAS", "date": "2021-04-11T00:00:00+0000"},
			{"close": 40.4, "symbol": "AAPL", "exchange": "XNAS", "date": "2021-04-12T00:00:00+0000"}
		]
	}`,
}

const errorEnvelope = `{
	"error": {
		"code": "validation_error",
		"message": "Request failed with validation error",
		"context": {"symbols": [{"key": "missing_symbols", "message": "You did not specify any symbols."}]}
	}
}`

func newTestClient(baseURL, key string) *Client {
	return NewClient(config.ProviderConfig{
		BaseURL:      baseURL,
		AccessKey:    key,
		AccessKeyEnv: "MARKET_STACK_ACCESS_KEY",
	}, logging.Discard())
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestEndOfDay(t *testing.T) {
	t.Run("single page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if r.URL.Path != "/eod" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			want := map[string]string{
				"access_key": "00000000000000000000000000000000",
				"symbols":    "AAPL",
				"sort":       "ASC",
				"date_from":  "2021-04-09",
				"date_to":    "2021-04-10",
				"limit":      "1000",
				"offset":     "0",
			}
			for k, v := range want {
				if q.Get(k) != v {
					t.Errorf("Expected %s=%s, got %q", k, v, q.Get(k))
				}
			}
			w.Write([]byte(singlePage))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "00000000000000000000000000000000")

		var pages [][]Record
		for page, err := range client.EndOfDay(context.Background(), "AAPL", day("2021-04-09"), day("2021-04-10")) {
			if err != nil {
				t.Fatalf("EndOfDay() yielded unexpected error: %v", err)
			}
			pages = append(pages, page)
		}

		if len(pages) != 1 {
			t.Fatalf("Expected 1 page, got %d", len(pages))
		}
		if pages[0][0].Close != 10.1 || pages[0][1].Close != 20.2 {
			t.Errorf("Unexpected closes %+v", pages[0])
		}
		if pages[0][0].Date != "2021-04-09T00:00:00+0000" {
			t.Errorf("Unexpected date %q", pages[0][0].Date)
		}
	})

	t.Run("follows pagination cursor", func(t *testing.T) {
		var requests []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			requests = append(requests, q.Get("limit")+"/"+q.Get("offset"))
			w.Write([]byte(multiPage[q.Get("offset")]))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "key")

		var closes []float64
		pages := 0
		for page, err := range client.EndOfDay(context.Background(), "AAPL", day("2021-04-09"), day("2021-04-12")) {
			if err != nil {
				t.Fatalf("EndOfDay() yielded unexpected error: %v", err)
			}
			pages++
			for _, rec := range page {
				closes = append(closes, rec.Close)
			}
		}

		if pages != 2 {
			t.Errorf("Expected 2 pages, got %d", pages)
		}
		if len(requests) != 2 || requests[0] != "1000/0" || requests[1] != "2/2" {
			t.Errorf("Unexpected request cursors %v", requests)
		}
		if len(closes) != 4 || closes[3] != 40.4 {
			t.Errorf("Unexpected closes %v", closes)
		}
	})

	t.Run("provider error is yielded once", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(errorEnvelope))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "key")

		var errs []error
		for page, err := range client.EndOfDay(context.Background(), "AAPL", day("2021-04-09"), day("2021-04-10")) {
			if page != nil {
				t.Errorf("Expected nil page alongside error, got %v", page)
			}
			errs = append(errs, err)
		}

		if len(errs) != 1 {
			t.Fatalf("Expected exactly one yielded error, got %d", len(errs))
		}
		if !errors.Is(errs[0], apperrors.ErrProviderRequest) {
			t.Errorf("Expected ErrProviderRequest, got %v", errs[0])
		}
		if errs[0].Error() != "Error while fetching stock prices: Request failed with validation error" {
			t.Errorf("Unexpected error message %q", errs[0].Error())
		}
	})

	t.Run("missing access key", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		client := newTestClient(server.URL, "")

		for _, err := range client.EndOfDay(context.Background(), "AAPL", day("2021-04-09"), day("2021-04-10")) {
			if !errors.Is(err, apperrors.ErrMissingAccessKey) {
				t.Errorf("Expected ErrMissingAccessKey, got %v", err)
			}
		}
		if calls.Load() != 0 {
			t.Errorf("Expected no HTTP calls, got %d", calls.Load())
		}
	})

	t.Run("stops when consumer breaks", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(multiPage[r.URL.Query().Get("offset")]))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "key")

		for range client.EndOfDay(context.Background(), "AAPL", day("2021-04-09"), day("2021-04-12")) {
			break
		}

		if calls.Load() != 1 {
			t.Errorf("Expected 1 HTTP call, got %d", calls.Load())
		}
	})
}

func TestPaginate(t *testing.T) {
	t.Run("three pages then stops", func(t *testing.T) {
		cursors := []Pagination{
			{Limit: 1, Offset: 0, Count: 1, Total: 2},
			{Limit: 1, Offset: 1, Count: 0, Total: 2},
			{Limit: 1, Offset: 1, Count: 1, Total: 2},
		}

		var requested [][2]int
		fetch := func(limit, offset int) (Response, error) {
			i := len(requested)
			requested = append(requested, [2]int{limit, offset})
			if i >= len(cursors) {
				t.Fatalf("Unexpected request %d (limit %d, offset %d)", i+1, limit, offset)
			}
			return Response{Pagination: cursors[i], Data: []Record{{Symbol: "AAPL"}}}, nil
		}

		pages := 0
		for _, err := range paginate(fetch, FetchLimit) {
			if err != nil {
				t.Fatalf("paginate() yielded unexpected error: %v", err)
			}
			pages++
		}

		if pages != 3 {
			t.Errorf("Expected 3 pages, got %d", pages)
		}
		want := [][2]int{{FetchLimit, 0}, {1, 1}, {1, 1}}
		for i, w := range want {
			if requested[i] != w {
				t.Errorf("Request %d: expected %v, got %v", i+1, w, requested[i])
			}
		}
	})

	t.Run("empty result is a single empty page", func(t *testing.T) {
		fetch := func(_, _ int) (Response, error) {
			return Response{Pagination: Pagination{Limit: 1000}}, nil
		}

		pages := 0
		for page, err := range paginate(fetch, FetchLimit) {
			if err != nil {
				t.Fatalf("paginate() yielded unexpected error: %v", err)
			}
			if len(page) != 0 {
				t.Errorf("Expected empty page, got %v", page)
			}
			pages++
		}
		if pages != 1 {
			t.Errorf("Expected 1 page, got %d", pages)
		}
	})
}

func TestRecordDay(t *testing.T) {
	got, err := Record{Date: "2021-04-09T00:00:00+0000"}.Day()
	if err != nil {
		t.Fatalf("Day() returned unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2021, 4, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected 2021-04-09, got %v", got)
	}

	if _, err := (Record{Date: "09/04/2021"}).Day(); err == nil {
		t.Error("Expected error for malformed date, got nil")
	}
}
