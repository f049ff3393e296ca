// Package metrics exposes Prometheus counters for provider traffic and cache
// growth.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_data",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Total number of requests sent to external data providers.",
		},
		[]string{"provider", "outcome"},
	)

	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "market_data",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of external data provider requests.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"provider"},
	)

	rowsInserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_data",
			Subsystem: "cache",
			Name:      "rows_inserted_total",
			Help:      "Total number of rows added to the local cache.",
		},
		[]string{"kind"},
	)

	refreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_data",
			Subsystem: "refresh",
			Name:      "entries_total",
			Help:      "Total number of scheduled watch-list refreshes.",
		},
		[]string{"success"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_data",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "status"},
	)
)

// Row kinds reported by RecordRowsInserted.
const (
	KindStockPrice   = "stock_price"
	KindExcludedDate = "excluded_date"
	KindCurrencyRate = "currency_rate"
)

func init() {
	Registry.MustRegister(
		providerRequests,
		providerDuration,
		rowsInserted,
		refreshRuns,
		httpRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordProviderRequest counts one provider round trip.
func RecordProviderRequest(provider string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	providerRequests.WithLabelValues(provider, outcome).Inc()
	providerDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRowsInserted adds n newly cached rows of kind.
func RecordRowsInserted(kind string, n int) {
	if n <= 0 {
		return
	}
	rowsInserted.WithLabelValues(kind).Add(float64(n))
}

// RecordRefresh counts one scheduled refresh of a watch-list entry.
func RecordRefresh(success bool) {
	refreshRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// InstrumentHandler counts handled HTTP requests by method and status.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
