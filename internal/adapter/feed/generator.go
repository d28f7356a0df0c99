package feed

import (
	"math"
	"math/rand"
	"sync"

	"marketdata/internal/domain/model"
)

const minSpread = 0.01

// Generator produces a random walk of quotes per symbol around a base price.
type Generator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	base   float64
	mids   map[string]float64
	stepPc float64
}

func NewGenerator(seed int64, base float64) *Generator {
	if base <= 0 {
		base = 100
	}
	return &Generator{
		rnd:    rand.New(rand.NewSource(seed)),
		base:   base,
		mids:   make(map[string]float64),
		stepPc: 0.005,
	}
}

// Next moves the symbol's mid price one step and returns a quote around it.
func (g *Generator) Next(symbol string) model.MarketData {
	g.mu.Lock()
	defer g.mu.Unlock()

	mid, ok := g.mids[symbol]
	if !ok {
		mid = g.base * (0.5 + g.rnd.Float64())
	}
	mid *= 1 + (g.rnd.Float64()*2-1)*g.stepPc
	if mid < 1 {
		mid = 1
	}
	g.mids[symbol] = mid

	half := math.Max(mid*0.0005, minSpread/2)
	bid := round(mid - half)
	ask := round(mid + half)
	if ask-bid < minSpread {
		ask = round(bid + minSpread)
	}
	return model.MarketData{Symbol: symbol, Bid: bid, Ask: ask}
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
