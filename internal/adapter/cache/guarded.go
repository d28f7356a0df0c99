package cache

import (
	"context"
	"log/slog"
	"time"

	"marketdata/internal/concurrency/breaker"
	"marketdata/internal/domain/model"
	"marketdata/internal/domain/port"
)

// Guarded puts a circuit breaker in front of a cache. While the breaker is
// open every call except Ping fails with breaker.ErrOpen.
type Guarded struct {
	inner   port.QuoteCache
	breaker *breaker.Breaker
}

func NewGuarded(inner port.QuoteCache, threshold int, reset time.Duration, logger *slog.Logger) *Guarded {
	b := breaker.New(threshold, reset, breaker.WithStateChange(func(from, to breaker.State) {
		logger.Warn("cache circuit state changed", "from", from.String(), "to", to.String())
	}))
	return &Guarded{inner: inner, breaker: b}
}

func (g *Guarded) State() breaker.State { return g.breaker.State() }

func (g *Guarded) Get(ctx context.Context, symbol string) (*model.MarketData, error) {
	var quote *model.MarketData
	err := g.breaker.Do(func() error {
		var err error
		quote, err = g.inner.Get(ctx, symbol)
		return err
	})
	return quote, err
}

func (g *Guarded) Put(ctx context.Context, quote *model.MarketData) error {
	return g.breaker.Do(func() error {
		return g.inner.Put(ctx, quote)
	})
}

func (g *Guarded) Evict(ctx context.Context, symbol string) error {
	return g.breaker.Do(func() error {
		return g.inner.Evict(ctx, symbol)
	})
}

func (g *Guarded) Clear(ctx context.Context) (int, error) {
	var n int
	err := g.breaker.Do(func() error {
		var err error
		n, err = g.inner.Clear(ctx)
		return err
	})
	return n, err
}

// Ping bypasses the breaker so health checks always see the real state.
func (g *Guarded) Ping(ctx context.Context) error {
	return g.inner.Ping(ctx)
}

func (g *Guarded) Close() error {
	return g.inner.Close()
}
