// Package exchangerates is the client of the exchangeratesapi.io historical
// rates API.
package exchangerates

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/provider"
)

// PivotCurrency is the only base currency the provider serves.
const PivotCurrency = "EUR"

// Rates is the provider's answer for one date: one unit of Base in each
// requested currency.
type Rates struct {
	Date  string             `json:"date"`
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Rate returns the rate for code, failing with apperrors.ErrRateMissing when
// the provider left it out.
func (r Rates) Rate(code string) (float64, error) {
	v, ok := r.Rates[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s->%s on %s", apperrors.ErrRateMissing, r.Base, code, r.Date)
	}
	return v, nil
}

type symbolsResponse struct {
	Symbols map[string]string `json:"symbols"`
}

// Client fetches currency rates.
type Client struct {
	requester *provider.Requester
	log       logrus.FieldLogger
}

// NewClient creates an exchangeratesapi client.
func NewClient(cfg config.ProviderConfig, log logrus.FieldLogger) *Client {
	return &Client{
		requester: provider.NewRequester("exchangeratesapi", cfg, log),
		log:       log,
	}
}

// CurrencyRate fetches the pivot currency's rates against codes on date.
func (c *Client) CurrencyRate(ctx context.Context, date time.Time, codes []string) (Rates, error) {
	c.log.WithFields(logrus.Fields{
		"date":   calendar.Format(date),
		"base":   PivotCurrency,
		"target": codes,
	}).Info("Fetching currency rates from ExchangeRatesAPI")

	params := url.Values{
		"base":    {PivotCurrency},
		"symbols": {strings.Join(codes, ",")},
	}

	var rates Rates
	if err := c.requester.Get(ctx, "/"+calendar.Format(date), params, "Error while fetching currency rates", &rates); err != nil {
		return Rates{}, err
	}
	if rates.Base == "" {
		rates.Base = PivotCurrency
	}
	return rates, nil
}

// Currencies fetches the supported currency codes mapped to their names.
func (c *Client) Currencies(ctx context.Context) (map[string]string, error) {
	c.log.Info("Fetching currency rate symbols")

	var resp symbolsResponse
	if err := c.requester.Get(ctx, "/symbols", nil, "Error while fetching currency symbols", &resp); err != nil {
		return nil, err
	}
	return resp.Symbols, nil
}
