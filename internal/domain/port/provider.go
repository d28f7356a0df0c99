package port

import (
	"context"

	"marketdata/internal/domain/model"
)

// QuoteProvider fetches a fresh quote from a market data source.
// (nil, nil) means the source has no quote for the symbol.
type QuoteProvider interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (*model.MarketData, error)
}
