package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ymakhloufi/banks-etl/internal/pkg/model"
)

// LoadToCSV overwrites path with a header row and one row per bank. The
// header follows records.Columns, or model.Columns when none are set.
func LoadToCSV(records model.RecordSet, path string) error {
	if err := model.RequireConverted(records.Banks); err != nil {
		return err
	}
	columns := records.Columns
	if len(columns) == 0 {
		columns = model.Columns
	}
	if err := checkColumns(columns); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStorage, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: failed to create '%s': %w", model.ErrStorage, path, err)
	}

	if err := writeBanksCSV(f, columns, records.Banks); err != nil {
		f.Close()
		return fmt.Errorf("%w: failed to write '%s': %w", model.ErrStorage, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: failed to close '%s': %w", model.ErrStorage, path, err)
	}
	return nil
}

func checkColumns(columns []string) error {
	for _, col := range columns {
		if col == model.ColumnName {
			continue
		}
		if _, err := (model.Bank{}).Value(col); err != nil {
			return err
		}
	}
	return nil
}

func writeBanksCSV(w io.Writer, columns []string, banks []model.Bank) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, b := range banks {
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			if col == model.ColumnName {
				row = append(row, b.Name)
				continue
			}
			v, err := b.Value(col)
			if err != nil {
				return err
			}
			row = append(row, formatFloat(v))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// formatFloat prints the shortest exact representation with at least one
// fractional digit: 100 -> "100.0", 74.4 -> "74.4".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ReadCSV reads a file written by LoadToCSV back into banks.
func ReadCSV(path string) ([]model.Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open '%s': %w", model.ErrStorage, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(model.Columns)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header of '%s': %w", model.ErrParse, path, err)
	}
	for i, col := range model.Columns {
		if header[i] != col {
			return nil, fmt.Errorf("%w: unexpected column '%s' at position %d in '%s'", model.ErrParse, header[i], i, path)
		}
	}

	var banks []model.Bank
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read line %d of '%s': %w", model.ErrParse, line, path, err)
		}

		values := make([]float64, 4)
		for i := range values {
			values[i], err = strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %w", model.ErrParse, line, model.Columns[i+1], err)
			}
		}
		banks = append(banks, model.Bank{
			Name:         record[0],
			MarketCapUSD: values[0],
			MarketCapGBP: values[1],
			MarketCapEUR: values[2],
			MarketCapINR: values[3],
			Converted:    true,
		})
	}
	return banks, nil
}
