package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"marketdata/internal/domain/model"
	"marketdata/internal/protocol"
)

type Options struct {
	// Unknown symbols are answered with NOT_FOUND.
	Unknown []string
	// CSV answers quotes as "SYMBOL,BID,ASK" lines instead of JSON.
	CSV bool
}

// Server is a mock upstream quote feed.
type Server struct {
	gen     *Generator
	unknown map[string]struct{}
	csv     bool
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

func NewServer(gen *Generator, opts Options, logger *slog.Logger) *Server {
	unknown := make(map[string]struct{}, len(opts.Unknown))
	for _, s := range opts.Unknown {
		unknown[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	return &Server{
		gen:     gen,
		unknown: unknown,
		csv:     opts.CSV,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen binds addr. Use ":0" to pick a free port, then Addr.
func (s *Server) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	return nil
}

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve accepts connections until ctx is done or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return errors.New("feed: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.logger.Info("quote feed listening", "addr", l.Addr().String())
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("feed client connected", "remote", remote)

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			s.logger.Debug("feed client disconnected", "remote", remote)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.respond(conn, line); err != nil {
			s.logger.Warn("failed to answer feed client", "remote", remote, "error", err)
			return
		}
	}
}

func (s *Server) respond(conn net.Conn, line string) error {
	var req protocol.Message
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return s.writeError(conn, "malformed request")
	}
	if req.Type != protocol.MsgRequestQuote {
		return s.writeError(conn, fmt.Sprintf("unsupported message type %q", req.Type))
	}

	var q protocol.QuoteRequest
	if err := req.Decode(&q); err != nil || q.Symbol == "" {
		return s.writeError(conn, "missing symbol")
	}

	if _, ok := s.unknown[strings.ToUpper(q.Symbol)]; ok {
		msg, _ := protocol.NewMessage(protocol.MsgNotFound, nil)
		return protocol.Write(conn, msg)
	}

	quote := s.gen.Next(q.Symbol)
	if s.csv {
		_, err := fmt.Fprintf(conn, "%s,%g,%g\n", quote.Symbol, quote.Bid, quote.Ask)
		return err
	}
	return s.writeQuote(conn, quote)
}

func (s *Server) writeQuote(conn net.Conn, quote model.MarketData) error {
	msg, err := protocol.NewMessage(protocol.MsgRespQuote, protocol.QuotePayload{
		Symbol: quote.Symbol,
		Bid:    quote.Bid,
		Ask:    quote.Ask,
	})
	if err != nil {
		return err
	}
	return protocol.Write(conn, msg)
}

func (s *Server) writeError(conn net.Conn, text string) error {
	msg, err := protocol.NewMessage(protocol.MsgError, protocol.ErrorPayload{Message: text})
	if err != nil {
		return err
	}
	return protocol.Write(conn, msg)
}

// Close stops accepting and drops every open client connection.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
