package provider

import (
	"context"

	"marketdata/internal/domain/model"
)

// Placeholder answers every symbol with the fixed 100/101 quote.
type Placeholder struct {
	name string
}

func NewPlaceholder() *Placeholder {
	return &Placeholder{name: "placeholder"}
}

func (p *Placeholder) Name() string { return p.name }

func (p *Placeholder) Fetch(ctx context.Context, symbol string) (*model.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &model.MarketData{
		Symbol: symbol,
		Bid:    model.PlaceholderBid,
		Ask:    model.PlaceholderAsk,
	}, nil
}
