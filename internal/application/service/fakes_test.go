package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"marketdata/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProvider struct {
	calls atomic.Int64
	fetch func(ctx context.Context, symbol string) (*model.MarketData, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(ctx context.Context, symbol string) (*model.MarketData, error) {
	f.calls.Add(1)
	return f.fetch(ctx, symbol)
}

func fixedQuote(bid, ask float64) func(context.Context, string) (*model.MarketData, error) {
	return func(_ context.Context, symbol string) (*model.MarketData, error) {
		return &model.MarketData{Symbol: symbol, Bid: bid, Ask: ask}, nil
	}
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]model.MarketData
	getErr  error
	putErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]model.MarketData)}
}

func (c *memCache) Get(_ context.Context, symbol string) (*model.MarketData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	q, ok := c.entries[symbol]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (c *memCache) Put(_ context.Context, quote *model.MarketData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	if quote == nil {
		return model.ErrInvalidQuote
	}
	c.entries[quote.Symbol] = *quote
	return nil
}

func (c *memCache) Evict(_ context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, symbol)
	return nil
}

func (c *memCache) Clear(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]model.MarketData)
	return n, nil
}

func (c *memCache) Ping(context.Context) error { return nil }
func (c *memCache) Close() error               { return nil }

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type memStore struct {
	mu        sync.Mutex
	records   []model.QuoteRecord
	saveErr   error
	deletedTo time.Time
}

func (s *memStore) SaveQuote(_ context.Context, rec model.QuoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) History(_ context.Context, symbol string, limit int) ([]model.QuoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.QuoteRecord
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].Symbol == symbol {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *memStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedTo = before
	kept := s.records[:0]
	var n int64
	for _, r := range s.records {
		if r.FetchedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

var errBoom = errors.New("boom")
