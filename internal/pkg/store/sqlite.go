package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ymakhloufi/banks-etl/internal/pkg/model"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLite is the embedded, file-backed store.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLite(db *sql.DB, logger *zap.Logger) *SQLite {
	return &SQLite{db: db, logger: logger}
}

// OpenSQLite opens (and creates if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite database '%s': %w", model.ErrStorage, path, err)
	}
	// one connection: an in-memory database would otherwise differ per connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping sqlite database '%s': %w", model.ErrStorage, path, err)
	}
	logger.Debug("opened sqlite database", zap.String("path", path))

	return NewSQLite(db, logger), nil
}

func (s *SQLite) ReplaceBanks(ctx context.Context, table string, banks []model.Bank) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	if err := model.RequireConverted(banks); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", model.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("%w: failed to drop table %s: %w", model.ErrStorage, table, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table, "TEXT", "REAL")); err != nil {
		return fmt.Errorf("%w: failed to create table %s: %w", model.ErrStorage, table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, func(int) string { return "?" }))
	if err != nil {
		return fmt.Errorf("%w: failed to prepare insert: %w", model.ErrStorage, err)
	}
	defer stmt.Close()

	for i, b := range banks {
		if _, err := stmt.ExecContext(ctx, rowValues(b)...); err != nil {
			return fmt.Errorf("%w: failed to insert row %d (%s): %w", model.ErrStorage, i+1, b.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit table %s: %w", model.ErrStorage, table, err)
	}
	s.logger.Debug("replaced table", zap.String("table", table), zap.Int("rows", len(banks)))
	return nil
}

func (s *SQLite) Query(ctx context.Context, query string) (model.ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return model.ResultSet{}, fmt.Errorf("%w: failed to run query '%s': %w", model.ErrStorage, query, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return model.ResultSet{}, fmt.Errorf("%w: failed to read result columns: %w", model.ErrStorage, err)
	}

	result := model.ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return model.ResultSet{}, fmt.Errorf("%w: failed to scan result row: %w", model.ErrStorage, err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return model.ResultSet{}, fmt.Errorf("%w: failed to iterate result rows: %w", model.ErrStorage, err)
	}
	return result, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
