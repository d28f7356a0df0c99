package cache

import (
	"context"

	"marketdata/internal/domain/model"
)

// Noop is used when Redis is disabled: every lookup misses and writes are dropped.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) Get(context.Context, string) (*model.MarketData, error) { return nil, nil }
func (Noop) Put(context.Context, *model.MarketData) error            { return nil }
func (Noop) Evict(context.Context, string) error                     { return nil }
func (Noop) Clear(context.Context) (int, error)                      { return 0, nil }
func (Noop) Ping(context.Context) error                              { return nil }
func (Noop) Close() error                                            { return nil }
