package worker

import (
	"context"
	"log/slog"

	"marketdata/internal/concurrency/fanin"
	"marketdata/internal/concurrency/fanout"
	"marketdata/internal/domain/model"
)

// Job is one symbol lookup, Index is its position in the request.
type Job struct {
	Index  int
	Symbol string
}

type Result struct {
	Index  int
	Symbol string
	Quote  *model.MarketData
	Err    error
}

type HandlerFunc func(ctx context.Context, symbol string) (*model.MarketData, error)

// Pool runs symbol lookups on a fixed number of workers.
// Jobs are spread over the workers with fanout and their results merged back with fanin.
type Pool struct {
	workers int
	logger  *slog.Logger
}

func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		logger:  logger,
	}
}

func (p *Pool) Size() int { return p.workers }

// Run looks up every symbol with fn and returns the results in input order.
// Once ctx is done no new job is dispatched; jobs that never ran carry ctx.Err().
func (p *Pool) Run(ctx context.Context, symbols []string, fn HandlerFunc) []Result {
	if len(symbols) == 0 {
		return nil
	}

	n := p.workers
	if n > len(symbols) {
		n = len(symbols)
	}

	in := make(chan Job)
	go func() {
		defer close(in)
		for i, s := range symbols {
			select {
			case <-ctx.Done():
				return
			case in <- Job{Index: i, Symbol: s}:
			}
		}
	}()

	outs := fanout.FanOut(in, n)
	resultChs := make([]<-chan Result, n)
	for i, ch := range outs {
		resultChs[i] = p.work(ctx, i, ch, fn)
	}

	results := make([]Result, len(symbols))
	done := make([]bool, len(symbols))
	for r := range fanin.FanIn(resultChs...) {
		results[r.Index] = r
		done[r.Index] = true
	}

	for i, ok := range done {
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = Result{Index: i, Symbol: symbols[i], Err: err}
		}
	}

	return results
}

// work drains its input even after ctx is done so fanout never blocks.
func (p *Pool) work(ctx context.Context, id int, in <-chan Job, fn HandlerFunc) <-chan Result {
	out := make(chan Result)

	go func() {
		defer close(out)
		for job := range in {
			res := Result{Index: job.Index, Symbol: job.Symbol}
			if err := ctx.Err(); err != nil {
				res.Err = err
			} else {
				res.Quote, res.Err = fn(ctx, job.Symbol)
			}

			if res.Err != nil {
				p.logger.Debug("worker: lookup failed", "worker", id, "symbol", job.Symbol, "error", res.Err)
			} else {
				p.logger.Debug("worker: lookup done", "worker", id, "symbol", job.Symbol)
			}
			out <- res
		}
	}()

	return out
}
