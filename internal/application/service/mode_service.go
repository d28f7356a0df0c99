package service

import (
	"context"
	"log/slog"
	"sync"

	"marketdata/internal/domain/model"
)

// ModeService holds the current quote source mode.
type ModeService struct {
	currentMode model.SourceMode
	mu          sync.RWMutex
	onSwitch    []func(ctx context.Context, from, to model.SourceMode)
	logger      *slog.Logger
}

func NewModeService(initial model.SourceMode, logger *slog.Logger) *ModeService {
	return &ModeService{
		currentMode: initial,
		logger:      logger,
	}
}

// OnSwitch registers fn to run after every effective mode change.
func (s *ModeService) OnSwitch(fn func(ctx context.Context, from, to model.SourceMode)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSwitch = append(s.onSwitch, fn)
}

// SwitchMode reports whether the mode actually changed.
func (s *ModeService) SwitchMode(ctx context.Context, mode model.SourceMode) bool {
	s.mu.Lock()
	if s.currentMode == mode {
		s.mu.Unlock()
		return false
	}

	old := s.currentMode
	s.currentMode = mode
	hooks := append([]func(context.Context, model.SourceMode, model.SourceMode){}, s.onSwitch...)
	s.mu.Unlock()

	s.logger.Info("mode_service: mode updated", "old", old.String(), "new", mode.String())
	for _, fn := range hooks {
		fn(ctx, old, mode)
	}
	return true
}

func (s *ModeService) GetCurrentMode() model.SourceMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentMode
}
