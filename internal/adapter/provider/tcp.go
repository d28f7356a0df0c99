package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"marketdata/internal/domain/model"
	"marketdata/internal/protocol"
)

type TCPOptions struct {
	Name           string
	Addr           string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
}

// TCP asks the upstream quote feed for one quote per request over a single
// kept-alive connection. Requests are serialized on that connection.
type TCP struct {
	name           string
	addr           string
	dialTimeout    time.Duration
	requestTimeout time.Duration
	log            *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

func NewTCP(opts TCPOptions, log *slog.Logger) *TCP {
	if opts.Name == "" {
		opts.Name = "upstream"
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Second
	}
	return &TCP{
		name:           opts.Name,
		addr:           opts.Addr,
		dialTimeout:    opts.DialTimeout,
		requestTimeout: opts.RequestTimeout,
		log:            log,
	}
}

func (t *TCP) Name() string {
	return t.name
}

func (t *TCP) Fetch(ctx context.Context, symbol string) (*model.MarketData, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.conn == nil {
		if err := t.connect(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrProviderUnavailable, t.name, err)
		}
	}

	deadline := time.Now().Add(t.requestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetDeadline(deadline); err != nil {
		return nil, t.fail(fmt.Errorf("set deadline: %w", err))
	}

	conn := t.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	req, err := protocol.NewMessage(protocol.MsgRequestQuote, protocol.QuoteRequest{Symbol: symbol})
	if err != nil {
		return nil, err
	}
	if err := protocol.Write(conn, req); err != nil {
		return nil, t.fail(t.ioError(ctx, "write", err))
	}

	line, err := t.reader.ReadString('\n')
	if err != nil {
		return nil, t.fail(t.ioError(ctx, "read", err))
	}
	line = strings.TrimSpace(line)

	quote, err := t.parseResponse(line)
	if err != nil {
		if errors.Is(err, errUpstreamRejected) {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrProviderUnavailable, t.name, err)
		}
		t.log.Warn("invalid response from upstream", "provider", t.name, "line_preview", truncate(line, 50))
		return nil, t.fail(err)
	}
	if quote != nil && quote.Symbol != symbol {
		return nil, t.fail(fmt.Errorf("response for %s while asking for %s", quote.Symbol, symbol))
	}

	return quote, nil
}

func (t *TCP) connect(ctx context.Context) error {
	t.log.Info("connecting to upstream", "provider", t.name, "addr", t.addr)

	dialer := net.Dialer{Timeout: t.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		t.log.Error("failed to connect to upstream", "provider", t.name, "addr", t.addr, "error", err)
		return err
	}

	t.conn = conn
	t.reader = bufio.NewReader(conn)
	t.log.Info("connected to upstream", "provider", t.name, "addr", t.addr)
	return nil
}

// fail drops the connection so the next call redials.
func (t *TCP) fail(err error) error {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
		t.reader = nil
	}
	t.log.Error("upstream request failed, connection dropped", "provider", t.name, "error", err)
	return fmt.Errorf("%w: %s: %v", model.ErrProviderUnavailable, t.name, err)
}

func (t *TCP) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var errUpstreamRejected = errors.New("upstream rejected request")

func (t *TCP) parseResponse(line string) (*model.MarketData, error) {
	if quote, ok, err := t.parseJSON(line); ok {
		return quote, err
	}
	if quote, ok := t.parseCSV(line); ok {
		return quote, nil
	}
	return nil, errors.New("invalid line format (neither JSON nor CSV)")
}

func (t *TCP) parseJSON(line string) (*model.MarketData, bool, error) {
	var msg protocol.Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil || msg.Type == "" {
		return nil, false, nil
	}

	switch msg.Type {
	case protocol.MsgRespQuote:
		var p protocol.QuotePayload
		if err := msg.Decode(&p); err != nil {
			return nil, true, fmt.Errorf("decode quote: %w", err)
		}
		return &model.MarketData{Symbol: p.Symbol, Bid: p.Bid, Ask: p.Ask}, true, nil
	case protocol.MsgNotFound:
		return nil, true, nil
	case protocol.MsgError:
		var p protocol.ErrorPayload
		_ = msg.Decode(&p)
		return nil, true, fmt.Errorf("%w: %s", errUpstreamRejected, p.Message)
	default:
		return nil, true, fmt.Errorf("unexpected message type %q", msg.Type)
	}
}

// parseCSV accepts "SYMBOL,BID,ASK".
func (t *TCP) parseCSV(line string) (*model.MarketData, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return nil, false
	}

	bid, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, false
	}
	ask, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return nil, false
	}

	return &model.MarketData{
		Symbol: strings.TrimSpace(parts[0]),
		Bid:    bid,
		Ask:    ask,
	}, true
}

func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	t.log.Info("closing upstream connection", "provider", t.name)
	err := t.conn.Close()
	t.conn = nil
	t.reader = nil
	return err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
