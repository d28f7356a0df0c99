package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"marketdata/internal/concurrency/worker"
	"marketdata/internal/domain/port"
)

// ErrRefreshStopped is returned by Start once Stop has been called. A
// RefreshService cannot be restarted; build a new one instead.
var ErrRefreshStopped = errors.New("refresh service stopped")

// RefreshService keeps a watchlist of symbols warm in the cache and prunes
// quote history older than the retention.
type RefreshService struct {
	market    *MarketService
	store     port.QuoteStore
	pool      *worker.Pool
	logger    *slog.Logger
	symbols   []string
	retention time.Duration
	ticker    *time.Ticker
	done      chan struct{}
	stopped   chan struct{}
	mu        sync.RWMutex
}

func NewRefreshService(market *MarketService, store port.QuoteStore, pool *worker.Pool, retention time.Duration, logger *slog.Logger) *RefreshService {
	return &RefreshService{
		market:    market,
		store:     store,
		pool:      pool,
		retention: retention,
		logger:    logger,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (s *RefreshService) SetSymbols(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols = append([]string{}, symbols...)
	s.logger.Info("refresh watchlist set", "count", len(symbols), "symbols", symbols)
}

// Start runs the refresh loop every interval until Stop or ctx is done.
// If interval <= 0, one minute is used. Calling Start again only changes the interval.
func (s *RefreshService) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return ErrRefreshStopped
	default:
	}
	if s.ticker != nil {
		s.ticker.Reset(interval)
		s.mu.Unlock()
		s.logger.Info("refresh interval updated", "interval", interval.String())
		return nil
	}
	s.ticker = time.NewTicker(interval)
	tick := s.ticker
	s.mu.Unlock()

	s.logger.Info("refresh service starting", "interval", interval.String())

	go s.refreshLoop(ctx, tick)
	return nil
}

// Stop is safe to call more than once and waits for the loop to exit.
func (s *RefreshService) Stop() {
	s.mu.Lock()
	started := s.ticker != nil
	if started {
		s.ticker.Stop()
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()

	if started {
		<-s.stopped
	}
	s.logger.Info("refresh service stopped")
}

func (s *RefreshService) refreshLoop(ctx context.Context, tick *time.Ticker) {
	defer close(s.stopped)
	s.logger.Info("refresh loop started")

	for {
		select {
		case <-tick.C:
			start := time.Now()
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("refresh cycle failed", "error", err, "duration", time.Since(start))
			} else {
				s.logger.Debug("refresh cycle completed", "duration", time.Since(start))
			}
		case <-s.done:
			s.logger.Info("refresh loop stopping by done channel")
			return
		case <-ctx.Done():
			s.logger.Info("refresh loop cancelled by context")
			return
		}
	}
}

// RunOnce refreshes every watchlist symbol and prunes old history.
// It returns the joined errors of the symbols that failed.
func (s *RefreshService) RunOnce(ctx context.Context) error {
	s.mu.RLock()
	symbols := append([]string{}, s.symbols...)
	s.mu.RUnlock()

	var errs []error
	if len(symbols) > 0 {
		results := s.pool.Run(ctx, symbols, s.market.Refresh)
		refreshed := 0
		for _, r := range results {
			if r.Err != nil {
				s.logger.Warn("failed to refresh symbol", "symbol", r.Symbol, "error", r.Err)
				errs = append(errs, r.Err)
				continue
			}
			refreshed++
		}
		s.logger.Info("watchlist refreshed", "refreshed", refreshed, "failed", len(symbols)-refreshed)
	}

	if s.store != nil && s.retention > 0 {
		cutoff := time.Now().Add(-s.retention)
		n, err := s.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			s.logger.Error("failed to prune quote history", "error", err)
			errs = append(errs, err)
		} else if n > 0 {
			s.logger.Info("quote history pruned", "deleted", n, "before", cutoff.UTC().Format(time.RFC3339))
		}
	}

	return errors.Join(errs...)
}
