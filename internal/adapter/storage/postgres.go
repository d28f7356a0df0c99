package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketdata/internal/domain/model"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 1000
)

type PostgresOptions struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type PostgresAdapter struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresAdapter(ctx context.Context, opts PostgresOptions) (*PostgresAdapter, error) {
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresAdapter{db: db, now: time.Now}, nil
}

func (a *PostgresAdapter) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS market_quotes (
		id UUID PRIMARY KEY,
		symbol VARCHAR(32) NOT NULL,
		bid DOUBLE PRECISION NOT NULL,
		ask DOUBLE PRECISION NOT NULL,
		source VARCHAR(50) NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_market_quotes_symbol_fetched_at ON market_quotes(symbol, fetched_at DESC);
	`
	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// SaveQuote assigns an id and fetch time when the record has none.
func (a *PostgresAdapter) SaveQuote(ctx context.Context, rec model.QuoteRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = a.now()
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO market_quotes (id, symbol, bid, ask, source, fetched_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Symbol, rec.Bid, rec.Ask, rec.Source, rec.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save quote %s: %w", rec.Symbol, err)
	}
	return nil
}

// History returns the most recent quotes for symbol, newest first.
func (a *PostgresAdapter) History(ctx context.Context, symbol string, limit int) ([]model.QuoteRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, symbol, bid, ask, source, fetched_at
		FROM market_quotes
		WHERE symbol = $1
		ORDER BY fetched_at DESC
		LIMIT $2`,
		symbol, ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", symbol, err)
	}
	defer rows.Close()

	records := make([]model.QuoteRecord, 0)
	for rows.Next() {
		var rec model.QuoteRecord
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Bid, &rec.Ask, &rec.Source, &rec.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return records, nil
}

func (a *PostgresAdapter) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, `DELETE FROM market_quotes WHERE fetched_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old quotes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted quotes: %w", err)
	}
	return n, nil
}

func (a *PostgresAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *PostgresAdapter) Close() error {
	return a.db.Close()
}

// ClampLimit maps a requested history size into 1..MaxHistoryLimit, 0 or less meaning the default.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
