package model

import (
	"fmt"

	"cloud.google.com/go/civil"
)

const (
	ColumnName  = "Name"
	ColumnMCUSD = "MC_USD_Billion"
	ColumnMCGBP = "MC_GBP_Billion"
	ColumnMCEUR = "MC_EUR_Billion"
	ColumnMCINR = "MC_INR_Billion"

	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
	CurrencyINR Currency = "INR"
)

// ExtractColumns are the columns the page yields before any conversion.
var ExtractColumns = []string{ColumnName, ColumnMCUSD}

// Columns is the full, ordered column list written to every sink.
var Columns = []string{ColumnName, ColumnMCUSD, ColumnMCGBP, ColumnMCEUR, ColumnMCINR}

// ConvertedCurrencies are the currencies every record is converted into.
var ConvertedCurrencies = []Currency{CurrencyGBP, CurrencyEUR, CurrencyINR}

type Currency string

// Bank is one row of the ranking. Market caps are in billions.
type Bank struct {
	Name         string
	MarketCapUSD float64
	MarketCapGBP float64
	MarketCapEUR float64
	MarketCapINR float64

	// Converted is set once all three derived market caps have been written.
	Converted bool
}

// RecordSet is the ordered list of banks as the source page ranks them.
type RecordSet struct {
	Columns     []string
	Banks       []Bank
	ExtractedOn civil.Date
}

func (r RecordSet) Len() int {
	return len(r.Banks)
}

// RequireConverted fails on the first bank whose derived market caps are missing.
func RequireConverted(banks []Bank) error {
	for i, b := range banks {
		if !b.Converted {
			return fmt.Errorf("%w: row %d (%s)", ErrNotConverted, i+1, b.Name)
		}
	}
	return nil
}

// Value returns the market cap held under a sink column name.
func (b Bank) Value(column string) (float64, error) {
	switch column {
	case ColumnMCUSD:
		return b.MarketCapUSD, nil
	case ColumnMCGBP:
		return b.MarketCapGBP, nil
	case ColumnMCEUR:
		return b.MarketCapEUR, nil
	case ColumnMCINR:
		return b.MarketCapINR, nil
	default:
		return 0, fmt.Errorf("unknown market cap column '%s'", column)
	}
}

// ExchangeRates maps a currency to its multiplier against USD.
type ExchangeRates map[Currency]float64

func (e ExchangeRates) Rate(c Currency) (float64, error) {
	rate, ok := e[c]
	if !ok {
		return 0, fmt.Errorf("%w: exchange rate for %s is missing", ErrConfig, c)
	}
	return rate, nil
}

// ResultSet is the tabular answer of an ad-hoc query.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}
