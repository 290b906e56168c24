// Package breaker implements a per-provider circuit breaker. When a
// recognition service is degraded, the breaker rejects calls immediately
// instead of waiting out the provider's full timeout window on every
// request.
//
// States: Closed (calls pass, failures counted in a rolling window) ->
// Open (calls rejected with ErrOpen after the failure threshold) ->
// HalfOpen (after the reset timeout, one trial call passes) -> Closed on
// trial success, back to Open on trial failure.
//
// State is per-process: each replica tracks its own view of provider
// health. Synchronizing breaker state across a fleet is a documented
// trade-off, not an oversight.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// State is the breaker's position in the Closed/Open/HalfOpen machine.
type State int32

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

// ErrOpen is returned without contacting the provider when the breaker is
// open. Callers treat it as "provider absent", distinct from a transient
// provider failure.
var ErrOpen = errors.New("breaker: open")

// Settings configure one breaker. Zero values select the defaults.
// The paid, rate-limited provider wants a stricter threshold and a longer
// reset timeout (fail fast, conserve quota); the free one can afford a
// looser threshold and a quicker retry.
type Settings struct {
	Name string

	// FailureThreshold is the failure count within Window that opens the
	// breaker. Default 5.
	FailureThreshold int

	// Window bounds how long failures keep counting toward the threshold.
	// Default 60s.
	Window time.Duration

	// ResetTimeout is how long the breaker stays open before allowing a
	// half-open trial call. Default 30s.
	ResetTimeout time.Duration

	// OnStateChange is invoked (outside the breaker's lock) on every
	// transition. Optional.
	OnStateChange func(name string, from, to State)

	// Clock overrides time.Now. Test hook.
	Clock func() time.Time
}

// Breaker is safe for concurrent use. Create one per provider with New.
type Breaker struct {
	set Settings

	mu          sync.Mutex
	state       State
	failures    int
	windowStart time.Time
	openedAt    time.Time
	trialActive bool
}

func New(set Settings) *Breaker {
	if set.FailureThreshold <= 0 {
		set.FailureThreshold = 5
	}
	if set.Window <= 0 {
		set.Window = time.Minute
	}
	if set.ResetTimeout <= 0 {
		set.ResetTimeout = 30 * time.Second
	}
	if set.Clock == nil {
		set.Clock = time.Now
	}
	return &Breaker{set: set}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn through breaker b. In the Open state it returns ErrOpen
// immediately. fn's error decides success or failure accounting.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if err := b.acquire(); err != nil {
		var zero T
		return zero, err
	}
	v, err := fn()
	b.record(err == nil)
	return v, err
}

// Call is the non-generic form of Do.
func (b *Breaker) Call(fn func() error) error {
	_, err := Do(b, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	now := b.set.Clock()

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil

	case StateOpen:
		if now.Sub(b.openedAt) < b.set.ResetTimeout {
			b.mu.Unlock()
			return ErrOpen
		}
		transition := b.transitionLocked(StateHalfOpen, now)
		b.trialActive = true
		b.mu.Unlock()
		transition()
		return nil

	case StateHalfOpen:
		if b.trialActive {
			b.mu.Unlock()
			return ErrOpen
		}
		b.trialActive = true
		b.mu.Unlock()
		return nil
	}

	b.mu.Unlock()
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	now := b.set.Clock()
	var notify func()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			break
		}
		if b.failures == 0 || now.Sub(b.windowStart) > b.set.Window {
			b.failures = 0
			b.windowStart = now
		}
		b.failures++
		if b.failures >= b.set.FailureThreshold {
			notify = b.transitionLocked(StateOpen, now)
		}

	case StateHalfOpen:
		b.trialActive = false
		if success {
			b.failures = 0
			notify = b.transitionLocked(StateClosed, now)
		} else {
			notify = b.transitionLocked(StateOpen, now)
		}

	case StateOpen:
		// a call admitted just before the transition; nothing to account
	}

	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// transitionLocked moves the machine and returns the deferred callback so
// OnStateChange runs outside the lock. Caller holds b.mu.
func (b *Breaker) transitionLocked(to State, now time.Time) func() {
	from := b.state
	b.state = to
	if to == StateOpen {
		b.openedAt = now
	}
	if b.set.OnStateChange == nil || from == to {
		return func() {}
	}
	name := b.set.Name
	cb := b.set.OnStateChange
	return func() { cb(name, from, to) }
}
