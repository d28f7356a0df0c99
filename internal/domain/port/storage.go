package port

import (
	"context"
	"marketdata/internal/domain/model"
	"time"
)

type QuoteStore interface {
	SaveQuote(ctx context.Context, rec model.QuoteRecord) error
	History(ctx context.Context, symbol string, limit int) ([]model.QuoteRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
