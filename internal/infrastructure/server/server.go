package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"marketdata/internal/infrastructure/config"
)

// Server serves the market data API. Listen may be called ahead of Start to
// bind the port early; Start binds on its own otherwise.
type Server struct {
	http   *http.Server
	logger *slog.Logger

	mu sync.Mutex
	ln net.Listener
}

func NewServer(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger.With("component", "api"),
	}
}

// Addr is the bound address once listening, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.http.Addr
}

func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	s.ln = ln
	return nil
}

// Start blocks serving requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	s.logger.Info("market api listening", "addr", ln.Addr().String())
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	s.logger.Error("market api stopped", "error", err)
	return err
}

// Shutdown stops accepting connections and waits for active requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	started := time.Now()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("drain market api: %w", err)
	}
	s.logger.Info("market api drained", "took", time.Since(started))
	return nil
}
