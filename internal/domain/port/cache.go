package port

import (
	"context"
	"marketdata/internal/domain/model"
)

// QuoteCache stores quotes by symbol. A miss is reported as (nil, nil).
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (*model.MarketData, error)
	Put(ctx context.Context, quote *model.MarketData) error
	Evict(ctx context.Context, symbol string) error
	Clear(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
