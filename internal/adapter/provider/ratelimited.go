package provider

import (
	"context"
	"fmt"

	"marketdata/internal/domain/model"
	"marketdata/internal/domain/port"

	"golang.org/x/time/rate"
)

// RateLimited caps the request rate sent to the wrapped provider.
type RateLimited struct {
	next    port.QuoteProvider
	limiter *rate.Limiter
}

func NewRateLimited(next port.QuoteProvider, rps float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (r *RateLimited) Name() string { return r.next.Name() }

func (r *RateLimited) Fetch(ctx context.Context, symbol string) (*model.MarketData, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", r.next.Name(), err)
	}
	return r.next.Fetch(ctx, symbol)
}
