package provider

import (
	"context"
	"fmt"
	"log/slog"

	"marketdata/internal/domain/model"
	"marketdata/internal/domain/port"
)

// ModeSource reports which source quotes should come from.
type ModeSource interface {
	GetCurrentMode() model.SourceMode
}

// Switch delegates every fetch to the provider registered for the current mode.
type Switch struct {
	modes     ModeSource
	providers map[model.SourceMode]port.QuoteProvider
	logger    *slog.Logger
}

func NewSwitch(modes ModeSource, providers map[model.SourceMode]port.QuoteProvider, logger *slog.Logger) *Switch {
	return &Switch{
		modes:     modes,
		providers: providers,
		logger:    logger,
	}
}

func (s *Switch) Name() string {
	if p, ok := s.providers[s.modes.GetCurrentMode()]; ok {
		return p.Name()
	}
	return "switch"
}

func (s *Switch) Fetch(ctx context.Context, symbol string) (*model.MarketData, error) {
	mode := s.modes.GetCurrentMode()
	p, ok := s.providers[mode]
	if !ok {
		return nil, fmt.Errorf("%w: no provider for mode %s", model.ErrProviderUnavailable, mode)
	}
	s.logger.Debug("provider: fetching quote", "mode", mode.String(), "provider", p.Name(), "symbol", symbol)
	return p.Fetch(ctx, symbol)
}
