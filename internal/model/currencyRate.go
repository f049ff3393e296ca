package model

import "time"

// CurrencyRate is the rate of one unit of BaseCurrency (always the provider's
// pivot currency) expressed in TargetCurrency on a date.
// (Date, BaseCurrency, TargetCurrency) is unique in the store.
type CurrencyRate struct {
	ID             string    `db:"id" json:"id"`
	Date           time.Time `db:"date" json:"date"`
	BaseCurrency   string    `db:"base_currency" json:"baseCurrency"`
	TargetCurrency string    `db:"target_currency" json:"targetCurrency"`
	Rate           float64   `db:"rate" json:"rate"`
}

// RateRow is one line of a derived (triangulated) rate table, indexed by Date.
// Rate converts one unit of BaseCurrency into TargetCurrency.
type RateRow struct {
	Date           time.Time `json:"date"`
	BaseCurrency   string    `json:"baseCurrency"`
	TargetCurrency string    `json:"targetCurrency"`
	Rate           float64   `json:"rate"`
}
