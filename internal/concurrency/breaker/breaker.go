package breaker

import (
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker opens after threshold consecutive failures and lets a single
// trial call through once resetTimeout has elapsed.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failureCount int
	threshold    int
	resetTimeout time.Duration
	lastFailure  time.Time
	trialRunning bool
	// generation changes on every transition; results of calls admitted
	// under an older generation are ignored.
	generation uint64

	now           func() time.Time
	onStateChange func(from, to State)
}

type Option func(*Breaker)

// WithStateChange registers a callback invoked on every transition, under the breaker lock.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

func New(threshold int, resetTimeout time.Duration, opts ...Option) *Breaker {
	if threshold <= 0 {
		threshold = 1
	}
	b := &Breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn unless the breaker is open. fn's error is returned unchanged.
func (b *Breaker) Do(fn func() error) error {
	gen, err := b.allow()
	if err != nil {
		return err
	}

	err = fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return err
	}

	if b.state == StateHalfOpen {
		b.trialRunning = false
	}

	if err != nil {
		b.failureCount++
		b.lastFailure = b.now()
		if b.state == StateHalfOpen || b.failureCount >= b.threshold {
			b.setState(StateOpen)
		}
		return err
	}

	b.failureCount = 0
	if b.state != StateClosed {
		b.setState(StateClosed)
	}
	return nil
}

func (b *Breaker) allow() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.resetTimeout {
			return 0, ErrOpen
		}
		b.setState(StateHalfOpen)
		b.trialRunning = true
	case StateHalfOpen:
		if b.trialRunning {
			return 0, ErrOpen
		}
		b.trialRunning = true
	}
	return b.generation, nil
}

func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to
	b.generation++
	if b.onStateChange != nil && from != to {
		b.onStateChange(from, to)
	}
}
