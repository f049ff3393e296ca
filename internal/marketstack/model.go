package marketstack

import (
	"fmt"
	"time"

	"github.com/rrebane/market-data-loader/internal/calendar"
)

// RecordDateLayout is the timestamp format of Record.Date.
const RecordDateLayout = "2006-01-02T15:04:05-0700"

// Response is one page of the /eod endpoint.
type Response struct {
	Pagination Pagination `json:"pagination"`
	Data       []Record   `json:"data"`
}

// Pagination is the cursor returned with every page.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
	Total  int `json:"total"`
}

// Record is a single end-of-day quote.
type Record struct {
	Date     string  `json:"date"`
	Symbol   string  `json:"symbol"`
	Close    float64 `json:"close"`
	Exchange string  `json:"exchange"`
}

// Day returns the calendar date of the quote.
func (r Record) Day() (time.Time, error) {
	t, err := time.Parse(RecordDateLayout, r.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid record date %q: %w", r.Date, err)
	}
	return calendar.Day(t), nil
}
