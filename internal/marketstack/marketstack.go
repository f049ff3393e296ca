// Package marketstack is the client of the marketstack end-of-day price API.
package marketstack

import (
	"context"
	"iter"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/provider"
)

// FetchLimit is the page size asked for on the first request.
const FetchLimit = 1000

const errPrefix = "Error while fetching stock prices"

// Client fetches end-of-day prices.
type Client struct {
	requester *provider.Requester
	log       logrus.FieldLogger
}

// NewClient creates a marketstack client.
func NewClient(cfg config.ProviderConfig, log logrus.FieldLogger) *Client {
	return &Client{
		requester: provider.NewRequester("marketstack", cfg, log),
		log:       log,
	}
}

// EndOfDay returns the lazy, ascending sequence of quote pages for symbol
// between start and end inclusive. Each iteration step issues one request.
// The sequence ends after the page that exhausts the provider's total, or
// after the first error, which is yielded with a nil page. Callers may stop
// early by breaking out of the range loop.
func (c *Client) EndOfDay(ctx context.Context, symbol string, start, end time.Time) iter.Seq2[[]Record, error] {
	return func(yield func([]Record, error) bool) {
		c.log.WithFields(logrus.Fields{
			"symbol": symbol,
			"start":  calendar.Format(start),
			"end":    calendar.Format(end),
		}).Info("Fetching stock prices from MarketStack")

		fetch := func(limit, offset int) (Response, error) {
			params := url.Values{
				"symbols":   {symbol},
				"sort":      {"ASC"},
				"date_from": {calendar.Format(start)},
				"date_to":   {calendar.Format(end)},
				"limit":     {strconv.Itoa(limit)},
				"offset":    {strconv.Itoa(offset)},
			}

			var resp Response
			err := c.requester.Get(ctx, "/eod", params, errPrefix, &resp)
			return resp, err
		}

		for page, err := range paginate(fetch, FetchLimit) {
			if !yield(page, err) || err != nil {
				return
			}
		}
	}
}

// paginate walks the provider cursor: while offset+count is below total it
// requests the next page at offset+count, then adopts the cursor of the
// response.
func paginate(fetch func(limit, offset int) (Response, error), limit int) iter.Seq2[[]Record, error] {
	return func(yield func([]Record, error) bool) {
		offset, count, total := 0, 0, math.MaxInt

		for offset+count < total {
			resp, err := fetch(limit, offset+count)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(resp.Data, nil) {
				return
			}

			p := resp.Pagination
			limit, offset, count, total = p.Limit, p.Offset, p.Count, p.Total
		}
	}
}
