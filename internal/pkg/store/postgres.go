package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/ymakhloufi/banks-etl/internal/pkg/model"
	"go.uber.org/zap"
)

// Postgres keeps a single connection for the whole run.
type Postgres struct {
	conn   *pgx.Conn
	logger *zap.Logger
}

func NewPostgres(conn *pgx.Conn, logger *zap.Logger) *Postgres {
	return &Postgres{conn: conn, logger: logger}
}

func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to postgres: %w", model.ErrStorage, err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("%w: failed to ping postgres: %w", model.ErrStorage, err)
	}
	logger.Debug("connected to postgres", zap.String("host", conn.Config().Host))

	return NewPostgres(conn, logger), nil
}

func (p *Postgres) ReplaceBanks(ctx context.Context, table string, banks []model.Bank) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	if err := model.RequireConverted(banks); err != nil {
		return err
	}

	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", model.ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("%w: failed to drop table %s: %w", model.ErrStorage, table, err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(table, "TEXT", "DOUBLE PRECISION")); err != nil {
		return fmt.Errorf("%w: failed to create table %s: %w", model.ErrStorage, table, err)
	}

	insert := insertSQL(table, func(i int) string { return "$" + strconv.Itoa(i) })
	batch := &pgx.Batch{}
	for _, b := range banks {
		batch.Queue(insert, rowValues(b)...)
	}

	results := tx.SendBatch(ctx, batch)
	for i, b := range banks {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("%w: failed to insert row %d (%s): %w", model.ErrStorage, i+1, b.Name, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("%w: failed to close insert batch: %w", model.ErrStorage, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit table %s: %w", model.ErrStorage, table, err)
	}
	p.logger.Debug("replaced table", zap.String("table", table), zap.Int("rows", len(banks)))
	return nil
}

func (p *Postgres) Query(ctx context.Context, query string) (model.ResultSet, error) {
	rows, err := p.conn.Query(ctx, query)
	if err != nil {
		return model.ResultSet{}, fmt.Errorf("%w: failed to run query '%s': %w", model.ErrStorage, query, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := model.ResultSet{Columns: make([]string, 0, len(fields))}
	for _, f := range fields {
		result.Columns = append(result.Columns, string(f.Name))
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return model.ResultSet{}, fmt.Errorf("%w: failed to read result row: %w", model.ErrStorage, err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return model.ResultSet{}, fmt.Errorf("%w: failed to iterate result rows: %w", model.ErrStorage, err)
	}
	return result, nil
}

func (p *Postgres) Close() error {
	// the run context may already be cancelled here
	return p.conn.Close(context.Background())
}
