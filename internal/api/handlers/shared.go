package handlers

import (
	"time"

	"github.com/rrebane/market-data-loader/internal/calendar"
)

// Clock returns the current time. Handlers compare requested dates against it.
type Clock func() time.Time

// today returns the current UTC calendar date.
func (c Clock) today() time.Time {
	if c == nil {
		return calendar.Day(time.Now())
	}
	return calendar.Day(c())
}
