package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/rrebane/market-data-loader/internal/api/request"
	"github.com/rrebane/market-data-loader/internal/api/response"
	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/model"
	"github.com/rrebane/market-data-loader/internal/service"
	"github.com/rrebane/market-data-loader/internal/validation"
)

// MarketHandler serves cached prices and cross rates, filling the cache from
// the providers on demand.
//
// Identical requests in flight at the same time share one fill, so a burst of
// clients asking for the same symbol and range costs a single provider round.
type MarketHandler struct {
	quoteService    *service.QuoteService
	stockService    *service.StockService
	currencyService *service.CurrencyService
	flights         singleflight.Group
	now             Clock
	log             logrus.FieldLogger
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(
	quoteService *service.QuoteService,
	stockService *service.StockService,
	currencyService *service.CurrencyService,
	now Clock,
	log logrus.FieldLogger,
) *MarketHandler {
	return &MarketHandler{
		quoteService:    quoteService,
		stockService:    stockService,
		currencyService: currencyService,
		now:             now,
		log:             log,
	}
}

// PricesResponse is the body of a price lookup.
type PricesResponse struct {
	Symbol    string           `json:"symbol"`
	Currency  string           `json:"currency,omitempty"`
	StartDate string           `json:"startDate"`
	EndDate   string           `json:"endDate"`
	Prices    []model.PriceRow `json:"prices"`
}

// RatesResponse is the body of a cross-rate lookup.
type RatesResponse struct {
	Base      string          `json:"base"`
	Target    string          `json:"target"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Rates     []model.RateRow `json:"rates"`
}

// Prices handles GET requests for the closing prices of one symbol.
//
// Endpoint: GET /api/prices/{symbol}?currency=EUR&startDate=2021-04-09&endDate=2021-04-14
// Response: 200 OK with PricesResponse
// Error: 400 on invalid parameters, 404 on an unsupported currency, 502 on provider failures
func (h *MarketHandler) Prices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := validation.ValidatePriceQuery(request.PriceQuery{
		Symbol:    chi.URLParam(r, "symbol"),
		Currency:  q.Get("currency"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}, h.now.today())
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	key := flightKey("prices", params.Symbol, params.Currency, params.StartDate, params.EndDate)
	prices, err := share(r.Context(), &h.flights, key, func(ctx context.Context) ([]model.PriceRow, error) {
		return h.quoteService.GetPrices(ctx, params.Symbol, params.Currency, params.StartDate, params.EndDate)
	})
	if err != nil {
		h.log.WithError(err).WithField("symbol", params.Symbol).Warn("price lookup failed")
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, PricesResponse{
		Symbol:    params.Symbol,
		Currency:  params.Currency,
		StartDate: calendar.Format(params.StartDate),
		EndDate:   calendar.Format(params.EndDate),
		Prices:    nonNil(prices),
	})
}

// FillPrices handles POST requests that fill the price cache for one symbol
// without reading it back.
//
// Endpoint: POST /api/prices/{symbol}/fill?startDate=2021-04-09&endDate=2021-04-14
// Response: 200 OK with model.FillResult
func (h *MarketHandler) FillPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := validation.ValidatePriceQuery(request.PriceQuery{
		Symbol:    chi.URLParam(r, "symbol"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}, h.now.today())
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	key := flightKey("fill", params.Symbol, "", params.StartDate, params.EndDate)
	result, err := share(r.Context(), &h.flights, key, func(ctx context.Context) (model.FillResult, error) {
		return h.stockService.EnsurePrices(ctx, params.Symbol, params.StartDate, params.EndDate)
	})
	if err != nil {
		h.log.WithError(err).WithField("symbol", params.Symbol).Warn("price fill failed")
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Rates handles GET requests for the cross rate between two currencies on
// every business date of a range.
//
// Endpoint: GET /api/rates?base=USD&target=GBP&startDate=2021-04-09&endDate=2021-04-14
// Response: 200 OK with RatesResponse
func (h *MarketHandler) Rates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := validation.ValidateRateQuery(request.RateQuery{
		Base:      q.Get("base"),
		Target:    q.Get("target"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}, h.now.today())
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	dates := calendar.BusinessDatesInRange(params.StartDate, params.EndDate)

	var rates []model.RateRow
	if params.Base == params.Target {
		rates = identityRates(dates, params.Base)
	} else {
		key := flightKey("rates", params.Base, params.Target, params.StartDate, params.EndDate)
		rates, err = share(r.Context(), &h.flights, key, func(ctx context.Context) ([]model.RateRow, error) {
			return h.currencyService.GetCurrencyRates(ctx, dates, params.Base, params.Target)
		})
		if err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"base":   params.Base,
				"target": params.Target,
			}).Warn("rate lookup failed")
			response.RespondServiceError(w, err)
			return
		}
	}

	response.RespondJSON(w, http.StatusOK, RatesResponse{
		Base:      params.Base,
		Target:    params.Target,
		StartDate: calendar.Format(params.StartDate),
		EndDate:   calendar.Format(params.EndDate),
		Rates:     nonNil(rates),
	})
}

// share runs fn once per key among concurrent callers. The shared call is
// detached from the first caller's cancellation so that a client going away
// does not fail the others.
func share[T any](ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	v, err, _ := group.Do(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func flightKey(kind, a, b string, start, end time.Time) string {
	return strings.Join([]string{kind, a, b, calendar.Format(start), calendar.Format(end)}, "|")
}

func identityRates(dates []time.Time, code string) []model.RateRow {
	rows := make([]model.RateRow, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, model.RateRow{
			Date:           d,
			BaseCurrency:   code,
			TargetCurrency: code,
			Rate:           1,
		})
	}
	return rows
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
