package breaker

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var errFail = errors.New("fail")

func fail() error { return errFail }
func ok() error   { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(3, time.Second, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		if err := b.Do(fail); !errors.Is(err, errFail) {
			t.Fatalf("call %d: expected errFail, got %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatal("fn must not run while open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New(2, time.Second)

	_ = b.Do(fail)
	_ = b.Do(ok)
	_ = b.Do(fail)

	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []State
	b := New(1, time.Second, WithClock(clock.Now), WithStateChange(func(from, to State) {
		transitions = append(transitions, to)
	}))

	_ = b.Do(fail)
	clock.Advance(2 * time.Second)

	if err := b.Do(ok); err != nil {
		t.Fatalf("trial call failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(5, time.Second, WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		_ = b.Do(fail)
	}
	clock.Advance(2 * time.Second)

	if err := b.Do(fail); !errors.Is(err, errFail) {
		t.Fatalf("expected trial call error, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Do(ok); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen right after failed trial call, got %v", err)
	}
}

func TestBreaker_SingleTrialInHalfOpen(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(1, time.Second, WithClock(clock.Now))
	_ = b.Do(fail)
	clock.Advance(2 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- b.Do(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := b.Do(ok); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen for concurrent trial call, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial call failed: %v", err)
	}
}

func TestBreaker_StaleSuccessDoesNotCloseOpenBreaker(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(2, time.Second, WithClock(clock.Now))

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- b.Do(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	_ = b.Do(fail)
	_ = b.Do(fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("slow call failed: %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state after slow success = %v, want open", b.State())
	}
	if err := b.Do(ok); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestBreaker_StaleFailureDoesNotReopen(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(1, time.Second, WithClock(clock.Now))

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- b.Do(func() error {
			close(started)
			<-release
			return errFail
		})
	}()
	<-started

	_ = b.Do(fail)
	clock.Advance(2 * time.Second)
	if err := b.Do(ok); err != nil {
		t.Fatalf("trial call failed: %v", err)
	}

	close(release)
	if err := <-done; !errors.Is(err, errFail) {
		t.Fatalf("expected slow call error, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}
