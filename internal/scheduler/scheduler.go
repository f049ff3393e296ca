// Package scheduler keeps a watch list of symbols warm in the cache on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rrebane/market-data-loader/internal/calendar"
	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/metrics"
	"github.com/rrebane/market-data-loader/internal/model"
)

// Refresher fills and reads prices. Implemented by *service.QuoteService.
type Refresher interface {
	GetPrices(ctx context.Context, symbol, currency string, startDate, endDate time.Time) ([]model.PriceRow, error)
}

// Scheduler runs RefreshAll on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	quotes   Refresher
	entries  []config.WatchEntry
	lookback int
	log      logrus.FieldLogger
	now      func() time.Time
}

// New creates a Scheduler for cfg. Runs of the job never overlap.
func New(cfg config.RefreshConfig, quotes Refresher, log logrus.FieldLogger) (*Scheduler, error) {
	cronLog := cron.PrintfLogger(log)
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		quotes:   quotes,
		entries:  cfg.Symbols,
		lookback: cfg.LookbackDays,
		log:      log,
		now:      time.Now,
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, func() { s.RefreshAll(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// WithClock replaces the source of "today". Used by tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	s.log.WithField("entries", len(s.entries)).Info("Starting scheduled refresh")
	s.cron.Start()
}

// Stop stops the schedule and returns a context that is done once a running
// refresh has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RefreshAll refreshes every watch-list entry over the last lookback days.
// A failing entry is logged and does not stop the others. It returns the
// number of failed entries.
func (s *Scheduler) RefreshAll(ctx context.Context) int {
	end := calendar.Day(s.now())
	start := end.AddDate(0, 0, -s.lookback)

	failed := 0
	for _, entry := range s.entries {
		entryLog := s.log.WithFields(logrus.Fields{
			"symbol":   entry.Symbol,
			"currency": entry.Currency,
		})

		rows, err := s.quotes.GetPrices(ctx, entry.Symbol, entry.Currency, start, end)
		metrics.RecordRefresh(err == nil)
		if err != nil {
			failed++
			entryLog.WithError(err).Error("Scheduled refresh failed")
			continue
		}
		entryLog.WithField("rows", len(rows)).Debug("Scheduled refresh done")
	}
	return failed
}
