package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/ymakhloufi/banks-etl/internal/pkg/model"
	"go.uber.org/zap"
)

const (
	rateColumnCurrency = "Currency"
	rateColumnRate     = "Rate"
)

type Transformer struct {
	logger *zap.Logger
}

func NewTransformer(logger *zap.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// Transform returns a copy of records with the GBP, EUR and INR market caps
// filled in. All three rates are resolved before any record is touched.
func (t *Transformer) Transform(records model.RecordSet, rateTablePath string) (model.RecordSet, error) {
	rates, err := LoadExchangeRates(rateTablePath)
	if err != nil {
		return model.RecordSet{}, err
	}
	t.logger.Debug("loaded exchange rates", zap.Any("rates", rates))

	return ApplyRates(records, rates)
}

func ApplyRates(records model.RecordSet, rates model.ExchangeRates) (model.RecordSet, error) {
	resolved := make(map[model.Currency]float64, len(model.ConvertedCurrencies))
	for _, c := range model.ConvertedCurrencies {
		rate, err := rates.Rate(c)
		if err != nil {
			return model.RecordSet{}, err
		}
		resolved[c] = rate
	}

	out := records
	out.Columns = withConvertedColumns(records.Columns)
	out.Banks = make([]model.Bank, len(records.Banks))
	for i, b := range records.Banks {
		if math.IsNaN(b.MarketCapUSD) || math.IsInf(b.MarketCapUSD, 0) {
			return model.RecordSet{}, fmt.Errorf("%w: row %d (%s): market cap is not a finite number", model.ErrParse, i+1, b.Name)
		}
		b.MarketCapGBP = Convert(b.MarketCapUSD, resolved[model.CurrencyGBP])
		b.MarketCapEUR = Convert(b.MarketCapUSD, resolved[model.CurrencyEUR])
		b.MarketCapINR = Convert(b.MarketCapUSD, resolved[model.CurrencyINR])
		b.Converted = true
		out.Banks[i] = b
	}
	return out, nil
}

// withConvertedColumns appends the derived columns that are not present yet.
func withConvertedColumns(columns []string) []string {
	if len(columns) == 0 {
		columns = model.ExtractColumns
	}
	out := append([]string(nil), columns...)
	for _, col := range []string{model.ColumnMCGBP, model.ColumnMCEUR, model.ColumnMCINR} {
		if !slices.Contains(out, col) {
			out = append(out, col)
		}
	}
	return out
}

// Convert multiplies in decimal arithmetic and rounds half away from zero to
// two places, so Convert(1.005, 1) is 1.01.
func Convert(usd, rate float64) float64 {
	return decimal.NewFromFloat(usd).Mul(decimal.NewFromFloat(rate)).Round(2).InexactFloat64()
}

// LoadExchangeRates reads a CSV rate table with Currency and Rate columns.
func LoadExchangeRates(path string) (model.ExchangeRates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open rate table '%s': %w", model.ErrConfig, path, err)
	}
	defer f.Close()

	rates, err := parseExchangeRates(f)
	if err != nil {
		return nil, fmt.Errorf("%w: rate table '%s': %w", model.ErrConfig, path, err)
	}
	return rates, nil
}

func parseExchangeRates(r io.Reader) (model.ExchangeRates, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("table is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	currencyIdx, rateIdx := -1, -1
	for i, h := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(h), rateColumnCurrency):
			currencyIdx = i
		case strings.EqualFold(strings.TrimSpace(h), rateColumnRate):
			rateIdx = i
		}
	}
	if currencyIdx < 0 || rateIdx < 0 {
		return nil, fmt.Errorf("header %v lacks %s and %s columns", header, rateColumnCurrency, rateColumnRate)
	}

	rates := model.ExchangeRates{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		code := model.Currency(strings.ToUpper(strings.TrimSpace(record[currencyIdx])))
		rate, err := strconv.ParseFloat(strings.TrimSpace(record[rateIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate for %s: %w", code, err)
		}
		if math.IsNaN(rate) || math.IsInf(rate, 0) {
			return nil, fmt.Errorf("rate for %s is not a finite number", code)
		}
		rates[code] = rate
	}
	return rates, nil
}
