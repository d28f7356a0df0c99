package usecase

import (
	"context"
	"fmt"

	"marketdata/internal/application/service"
	"marketdata/internal/concurrency/worker"
	"marketdata/internal/domain/model"
	"marketdata/internal/domain/port"
)

const MaxBatchSymbols = 50

type QuoteResult struct {
	Symbol string            `json:"symbol"`
	Data   *model.MarketData `json:"data,omitempty"`
	Error  string            `json:"error,omitempty"`
}

type QuoteUseCase struct {
	market *service.MarketService
	store  port.QuoteStore
	pool   *worker.Pool
}

func NewQuoteUseCase(market *service.MarketService, store port.QuoteStore, pool *worker.Pool) *QuoteUseCase {
	return &QuoteUseCase{
		market: market,
		store:  store,
		pool:   pool,
	}
}

func (uc *QuoteUseCase) GetQuote(ctx context.Context, symbol string) (*model.MarketData, error) {
	return uc.market.GetMarketData(ctx, symbol)
}

// GetQuotes looks up every distinct symbol concurrently. Results follow the
// order in which symbols first appear; a symbol that fails carries its error.
func (uc *QuoteUseCase) GetQuotes(ctx context.Context, symbols []string) ([]QuoteResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", model.ErrInvalidSymbol)
	}
	if len(symbols) > MaxBatchSymbols {
		return nil, fmt.Errorf("%w: at most %d symbols per request, got %d", model.ErrInvalidSymbol, MaxBatchSymbols, len(symbols))
	}

	results := make([]QuoteResult, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	var lookup []string
	var slots []int

	for _, symbol := range symbols {
		if err := model.ValidateSymbol(symbol); err != nil {
			results = append(results, QuoteResult{Symbol: symbol, Error: err.Error()})
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		results = append(results, QuoteResult{Symbol: symbol})
		lookup = append(lookup, symbol)
		slots = append(slots, len(results)-1)
	}

	for i, r := range uc.pool.Run(ctx, lookup, uc.market.GetMarketData) {
		slot := &results[slots[i]]
		if r.Err != nil {
			slot.Error = r.Err.Error()
			continue
		}
		slot.Data = r.Quote
	}

	return results, nil
}

func (uc *QuoteUseCase) History(ctx context.Context, symbol string, limit int) ([]model.QuoteRecord, error) {
	if uc.store == nil {
		return nil, model.ErrHistoryDisabled
	}
	if err := model.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	records, err := uc.store.History(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", symbol, err)
	}
	return records, nil
}

func (uc *QuoteUseCase) HistoryEnabled() bool {
	return uc.store != nil
}
