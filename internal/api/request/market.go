package request

// PriceQuery holds the raw parameters of a price lookup, as received from the
// query string or the command line.
type PriceQuery struct {
	Symbol    string
	Currency  string
	StartDate string
	EndDate   string
}

// RateQuery holds the raw parameters of a cross-rate lookup.
type RateQuery struct {
	Base      string
	Target    string
	StartDate string
	EndDate   string
}
