package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/logging"
)

func newTestRequester(baseURL, key string) *Requester {
	return NewRequester("test", config.ProviderConfig{
		BaseURL:      baseURL,
		AccessKey:    key,
		AccessKeyEnv: "TEST_ACCESS_KEY",
	}, logging.Discard())
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"envelope message", `{"error":{"code":"invalid_access_key","message":"You have not supplied a valid API Access Key."}}`,
			"Error while fetching stock prices: You have not supplied a valid API Access Key."},
		{"missing message", `{"error":{"code":"x"}}`, "Error while fetching stock prices"},
		{"non-string message", `{"error":{"message":42}}`, "Error while fetching stock prices"},
		{"not json", `<html>bad gateway</html>`, "Error while fetching stock prices"},
		{"empty body", ``, "Error while fetching stock prices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorMessage("Error while fetching stock prices", []byte(tt.body))
			if got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequesterGet(t *testing.T) {
	t.Run("adds access key and decodes body", func(t *testing.T) {
		var gotQuery url.Values
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"value":"ok"}`))
		}))
		defer server.Close()

		var out struct {
			Value string `json:"value"`
		}
		err := newTestRequester(server.URL, "secret").Get(context.Background(), "/thing",
			url.Values{"symbols": {"AAPL"}}, "prefix", &out)
		if err != nil {
			t.Fatalf("Get() returned unexpected error: %v", err)
		}

		if out.Value != "ok" {
			t.Errorf("Expected decoded value ok, got %q", out.Value)
		}
		if gotQuery.Get("access_key") != "secret" {
			t.Errorf("Expected access_key=secret, got %q", gotQuery.Get("access_key"))
		}
		if gotQuery.Get("symbols") != "AAPL" {
			t.Errorf("Expected symbols=AAPL, got %q", gotQuery.Get("symbols"))
		}
	})

	t.Run("missing access key fails before any request", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		var out map[string]any
		err := newTestRequester(server.URL, "").Get(context.Background(), "/thing", nil, "prefix", &out)

		if !errors.Is(err, apperrors.ErrMissingAccessKey) {
			t.Fatalf("Expected ErrMissingAccessKey, got %v", err)
		}
		if err.Error() != "TEST_ACCESS_KEY environment variable missing" {
			t.Errorf("Unexpected error message %q", err.Error())
		}
		if calls.Load() != 0 {
			t.Errorf("Expected no HTTP calls, got %d", calls.Load())
		}
	})

	t.Run("rejection carries envelope message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"invalid key"}}`))
		}))
		defer server.Close()

		var out map[string]any
		err := newTestRequester(server.URL, "secret").Get(context.Background(), "/thing", nil, "Error while fetching", &out)

		if !errors.Is(err, apperrors.ErrProviderRequest) {
			t.Fatalf("Expected ErrProviderRequest, got %v", err)
		}
		if err.Error() != "Error while fetching: invalid key" {
			t.Errorf("Unexpected error message %q", err.Error())
		}

		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected RequestError with status 401, got %v", err)
		}
	})

	t.Run("invalid body is a provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		var out map[string]any
		err := newTestRequester(server.URL, "secret").Get(context.Background(), "/thing", nil, "prefix", &out)
		if !errors.Is(err, apperrors.ErrProviderRequest) {
			t.Errorf("Expected ErrProviderRequest, got %v", err)
		}
	})

	t.Run("cancelled context stops before sending", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var out map[string]any
		err := newTestRequester(server.URL, "secret").Get(ctx, "/thing", nil, "prefix", &out)
		if err == nil {
			t.Fatal("Expected error for cancelled context, got nil")
		}
		if calls.Load() != 0 {
			t.Errorf("Expected no HTTP calls, got %d", calls.Load())
		}
	})
}
