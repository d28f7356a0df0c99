package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"marketdata/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_RunPreservesOrder(t *testing.T) {
	p := NewPool(3, testLogger())
	symbols := []string{"AAPL", "MSFT", "GOOG", "AMZN", "TSLA", "NVDA", "META"}

	results := p.Run(context.Background(), symbols, func(ctx context.Context, s string) (*model.MarketData, error) {
		return &model.MarketData{Symbol: s, Bid: 1, Ask: 2}, nil
	})

	if len(results) != len(symbols) {
		t.Fatalf("expected %d results, got %d", len(symbols), len(results))
	}
	for i, r := range results {
		if r.Index != i || r.Symbol != symbols[i] {
			t.Fatalf("result %d = %+v, want symbol %s", i, r, symbols[i])
		}
		if r.Err != nil || r.Quote == nil || r.Quote.Symbol != symbols[i] {
			t.Fatalf("result %d unexpected: %+v", i, r)
		}
	}
}

func TestPool_RunReportsPerJobErrors(t *testing.T) {
	p := NewPool(2, testLogger())
	boom := errors.New("boom")

	results := p.Run(context.Background(), []string{"OK", "BAD"}, func(ctx context.Context, s string) (*model.MarketData, error) {
		if s == "BAD" {
			return nil, boom
		}
		return &model.MarketData{Symbol: s, Bid: 1, Ask: 2}, nil
	})

	if results[0].Err != nil {
		t.Fatalf("unexpected error for OK: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Fatalf("expected boom for BAD, got %v", results[1].Err)
	}
}

func TestPool_RunBoundsConcurrency(t *testing.T) {
	p := NewPool(2, testLogger())
	var inFlight, peak int32

	symbols := make([]string, 10)
	for i := range symbols {
		symbols[i] = "S"
	}

	p.Run(context.Background(), symbols, func(ctx context.Context, s string) (*model.MarketData, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	})

	if peak > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestPool_RunCancelledContext(t *testing.T) {
	p := NewPool(2, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := p.Run(ctx, []string{"A", "B", "C"}, func(ctx context.Context, s string) (*model.MarketData, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})

	if calls != 0 {
		t.Fatalf("expected no lookups after cancel, got %d", calls)
	}
	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("result %d error = %v, want context.Canceled", i, r.Err)
		}
	}
}

func TestPool_RunEmpty(t *testing.T) {
	if got := NewPool(0, testLogger()).Run(context.Background(), nil, nil); got != nil {
		t.Fatalf("expected nil results, got %v", got)
	}
}
