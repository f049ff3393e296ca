package model

import "time"

// DefaultCurrency is stored on price rows when the provider does not report one.
const DefaultCurrency = "USD"

// StockPrice is the closing price of a symbol on one business date.
// (Date, Symbol) is unique in the store.
type StockPrice struct {
	ID         string    `db:"id" json:"id"`
	Date       time.Time `db:"date" json:"date"`
	Symbol     string    `db:"symbol" json:"symbol"`
	ClosePrice float64   `db:"close_price" json:"closePrice"`
	Exchange   string    `db:"exchange" json:"exchange"`
	Currency   string    `db:"currency" json:"currency"`
}

// ExcludedDate marks a date for which a symbol provably has no data, such as
// an exchange holiday. (Date, Symbol) is unique in the store.
type ExcludedDate struct {
	ID     string    `db:"id" json:"id"`
	Date   time.Time `db:"date" json:"date"`
	Symbol string    `db:"symbol" json:"symbol"`
}

// PriceRow is one line of the price table returned to callers, indexed by Date.
type PriceRow struct {
	Date       time.Time `json:"date"`
	Symbol     string    `json:"symbol"`
	Currency   string    `json:"currency"`
	ClosePrice float64   `json:"closePrice"`
}

// FillResult summarizes what a price gap-fill did.
type FillResult struct {
	Symbol       string    `json:"symbol"`
	Requested    int       `json:"requested"`    // business dates in range
	Missing      int       `json:"missing"`      // dates neither cached nor excluded before the fill
	Inserted     int       `json:"inserted"`     // new StockPrice rows
	Excluded     int       `json:"excluded"`     // new ExcludedDate rows
	Pending      int       `json:"pending"`      // missing dates left for a later call (today)
	PagesFetched int       `json:"pagesFetched"` // provider pages consumed
	SpanStart    time.Time `json:"spanStart,omitzero"`
	SpanEnd      time.Time `json:"spanEnd,omitzero"`
}
