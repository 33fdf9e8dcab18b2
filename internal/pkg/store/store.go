// Package store persists the bank ranking into a relational table and runs
// ad-hoc read queries against it.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ymakhloufi/banks-etl/internal/pkg/config"
	"github.com/ymakhloufi/banks-etl/internal/pkg/model"
	"go.uber.org/zap"
)

// Store replaces a whole table per load; there is no incremental upsert.
type Store interface {
	ReplaceBanks(ctx context.Context, table string, banks []model.Bank) error
	Query(ctx context.Context, sql string) (model.ResultSet, error)
	Close() error
}

var (
	_ Store = &SQLite{}
	_ Store = &Postgres{}
)

// ErrInvalidTableName is returned for names that cannot be used as a bare SQL identifier.
var ErrInvalidTableName = fmt.Errorf("%w: invalid table name", model.ErrStorage)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open connects to the store selected by driver.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (Store, error) {
	switch driver {
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, dsn, logger)
	case config.DriverPostgres:
		return OpenPostgres(ctx, dsn, logger)
	default:
		return nil, fmt.Errorf("%w: unknown database driver '%s'", model.ErrConfig, driver)
	}
}

func validateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("%w '%s'", ErrInvalidTableName, table)
	}
	return nil
}

// createTableSQL builds the DDL for the five sink columns. Identifiers are left
// unquoted so that queries written without quotes resolve on both backends.
func createTableSQL(table, textType, floatType string) string {
	defs := make([]string, 0, len(model.Columns))
	for _, col := range model.Columns {
		typ := floatType
		if col == model.ColumnName {
			typ = textType
		}
		defs = append(defs, col+" "+typ)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

func insertSQL(table string, placeholder func(i int) string) string {
	marks := make([]string, len(model.Columns))
	for i := range marks {
		marks[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(model.Columns, ", "), strings.Join(marks, ", "))
}

func rowValues(b model.Bank) []any {
	return []any{b.Name, b.MarketCapUSD, b.MarketCapGBP, b.MarketCapEUR, b.MarketCapINR}
}
