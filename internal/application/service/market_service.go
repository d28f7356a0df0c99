package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"marketdata/internal/domain/model"
	"marketdata/internal/domain/port"

	"golang.org/x/sync/singleflight"
)

// MarketService serves quotes cache-aside: a cached quote is returned as is,
// a miss is fetched from the provider and cached for the configured TTL.
type MarketService struct {
	provider port.QuoteProvider
	cache    port.QuoteCache
	store    port.QuoteStore // nil when history is disabled
	logger   *slog.Logger
	group    singleflight.Group
	now      func() time.Time

	// gen is bumped by ClearCache; loads started under an older gen skip the cache write.
	genMu sync.RWMutex
	gen   uint64
}

func NewMarketService(provider port.QuoteProvider, cache port.QuoteCache, store port.QuoteStore, logger *slog.Logger) *MarketService {
	return &MarketService{
		provider: provider,
		cache:    cache,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *MarketService) GetMarketData(ctx context.Context, symbol string) (*model.MarketData, error) {
	if err := model.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx, symbol)
	if err != nil {
		s.logger.Warn("market_service: cache read failed, fetching from provider", "symbol", symbol, "error", err)
	} else if cached != nil {
		s.logger.Debug("market_service: cache hit", "symbol", symbol)
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared load outlives any single waiter; the provider bounds it with its own timeout.
	// Keying on the generation keeps callers arriving after ClearCache off a stale load.
	gen := s.generation()
	ch := s.group.DoChan(fmt.Sprintf("%d:%s", gen, symbol), func() (any, error) {
		return s.load(context.WithoutCancel(ctx), symbol, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("market_service: shared provider result", "symbol", symbol)
		}
		quote := *res.Val.(*model.MarketData)
		return &quote, nil
	}
}

// Refresh fetches symbol from the provider and overwrites its cache entry.
func (s *MarketService) Refresh(ctx context.Context, symbol string) (*model.MarketData, error) {
	if err := model.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	return s.load(ctx, symbol, s.generation())
}

func (s *MarketService) generation() uint64 {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.gen
}

// load fetches symbol and, unless ClearCache ran since gen was read, caches and records it.
func (s *MarketService) load(ctx context.Context, symbol string, gen uint64) (*model.MarketData, error) {
	start := s.now()
	quote, err := s.provider.Fetch(ctx, symbol)
	if err != nil {
		s.logger.Error("market_service: provider fetch failed", "symbol", symbol, "provider", s.provider.Name(), "error", err)
		return nil, err
	}
	if quote == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrQuoteNotFound, symbol)
	}
	if err := quote.Validate(); err != nil {
		s.logger.Warn("market_service: provider returned invalid quote", "symbol", symbol, "error", err)
		return nil, err
	}

	s.genMu.RLock()
	defer s.genMu.RUnlock()
	if s.gen != gen {
		s.logger.Info("market_service: cache cleared during fetch, result not cached", "symbol", symbol, "provider", s.provider.Name())
		return quote, nil
	}

	if err := s.cache.Put(ctx, quote); err != nil {
		s.logger.Warn("market_service: cache write failed", "symbol", symbol, "error", err)
	}

	if s.store != nil {
		rec := model.QuoteRecord{
			Symbol:    quote.Symbol,
			Bid:       quote.Bid,
			Ask:       quote.Ask,
			Source:    s.provider.Name(),
			FetchedAt: s.now().UTC(),
		}
		if err := s.store.SaveQuote(ctx, rec); err != nil {
			s.logger.Warn("market_service: failed to record quote history", "symbol", symbol, "error", err)
		}
	}

	s.logger.Debug("market_service: quote fetched", "symbol", symbol, "provider", s.provider.Name(), "duration", s.now().Sub(start))
	return quote, nil
}

func (s *MarketService) Evict(ctx context.Context, symbol string) error {
	if err := model.ValidateSymbol(symbol); err != nil {
		return err
	}
	if err := s.cache.Evict(ctx, symbol); err != nil {
		return fmt.Errorf("failed to evict %s: %w", symbol, err)
	}
	s.logger.Info("market_service: cache entry evicted", "symbol", symbol)
	return nil
}

// ClearCache removes every cached quote. Fetches already in flight are not cached.
func (s *MarketService) ClearCache(ctx context.Context) (int, error) {
	s.genMu.Lock()
	s.gen++
	s.genMu.Unlock()

	n, err := s.cache.Clear(ctx)
	if err != nil {
		return n, fmt.Errorf("failed to clear quote cache: %w", err)
	}
	return n, nil
}

func (s *MarketService) HistoryEnabled() bool {
	return s.store != nil
}
