package model

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

const (
	PlaceholderBid = 100.0
	PlaceholderAsk = 101.0
)

type MarketData struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

func (m MarketData) Mid() float64 {
	return (m.Bid + m.Ask) / 2
}

func (m MarketData) Spread() float64 {
	return m.Ask - m.Bid
}

// Validate checks that both sides of the quote are present and not crossed.
func (m MarketData) Validate() error {
	if m.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidQuote)
	}
	if !validPrice(m.Bid) || !validPrice(m.Ask) {
		return fmt.Errorf("%w: %s bid=%v ask=%v", ErrInvalidQuote, m.Symbol, m.Bid, m.Ask)
	}
	if m.Bid > m.Ask {
		return fmt.Errorf("%w: %s crossed bid=%v ask=%v", ErrInvalidQuote, m.Symbol, m.Bid, m.Ask)
	}
	return nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// QuoteRecord is one quote fetched from a provider, as kept in history.
type QuoteRecord struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ValidateSymbol rejects symbols that cannot be used as a cache key:
// empty, blank, or containing control characters. Valid symbols are used as given.
func ValidateSymbol(symbol string) error {
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidSymbol)
	}
	if strings.IndexFunc(symbol, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %q contains control characters", ErrInvalidSymbol, symbol)
	}
	return nil
}
