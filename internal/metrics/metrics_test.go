package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordProviderRequest(t *testing.T) {
	before := promtest.ToFloat64(providerRequests.WithLabelValues("unit", "error"))

	RecordProviderRequest("unit", errors.New("boom"), 10*time.Millisecond)

	after := promtest.ToFloat64(providerRequests.WithLabelValues("unit", "error"))
	if after-before != 1 {
		t.Errorf("Expected error counter to grow by 1, got %v", after-before)
	}
}

func TestRecordRowsInserted(t *testing.T) {
	before := promtest.ToFloat64(rowsInserted.WithLabelValues(KindExcludedDate))

	RecordRowsInserted(KindExcludedDate, 3)
	RecordRowsInserted(KindExcludedDate, 0)

	after := promtest.ToFloat64(rowsInserted.WithLabelValues(KindExcludedDate))
	if after-before != 3 {
		t.Errorf("Expected counter to grow by 3, got %v", after-before)
	}
}

func TestHandler(t *testing.T) {
	RecordRefresh(true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "market_data_refresh_entries_total") {
		t.Error("Expected refresh counter in exposition output")
	}
}

func TestInstrumentHandler(t *testing.T) {
	before := promtest.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "418"))

	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/x", nil))

	after := promtest.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "418"))
	if after-before != 1 {
		t.Errorf("Expected counter to grow by 1, got %v", after-before)
	}
}
