// Package circuitbreaker isolates callers from failing backends. Each
// downstream service gets one breaker that fast-fails calls while the
// service is misbehaving.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/listboard/gateway/internal/observability"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed indicates the circuit is closed and calls pass through.
	StateClosed State = iota

	// StateOpen indicates the circuit is open and calls fast-fail.
	StateOpen

	// StateHalfOpen indicates a single trial call is in flight.
	StateHalfOpen
)

// String returns the string representation of the state.
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

// ErrCircuitOpen is returned when a call is rejected by an open circuit.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds configuration for a circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit from closed.
	FailureThreshold int

	// Cooldown is how long after the last failure an open circuit waits
	// before admitting a single trial call. The transition is evaluated
	// lazily when the next call arrives, never by a timer: a breaker
	// with no traffic stays open indefinitely.
	Cooldown time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	}
}

// Breaker is the per-service circuit breaker state machine. State lives
// in process memory only and resets on restart.
type Breaker struct {
	name   string
	config *Config
	logger observability.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// BreakerOption is a functional option for configuring a breaker.
type BreakerOption func(*Breaker)

// WithBreakerLogger sets the logger for the breaker.
func WithBreakerLogger(logger observability.Logger) BreakerOption {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// WithBreakerClock sets the time source, letting tests advance the
// cooldown deterministically.
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) {
		b.now = now
	}
}

// NewBreaker creates a breaker in the closed state.
func NewBreaker(name string, config *Config, opts ...BreakerOption) *Breaker {
	if config == nil {
		config = DefaultConfig()
	}
	b := &Breaker{
		name:   name,
		config: config,
		logger: observability.NopLogger(),
		now:    time.Now,
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call may be dispatched. An open breaker whose
// cooldown has elapsed transitions to half-open and admits the call as
// its trial; while the trial is outstanding every other call is
// rejected.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	var allowed bool
	switch b.state {
	case StateClosed:
		allowed = true

	case StateOpen:
		if b.now().Sub(b.lastFailure) > b.config.Cooldown {
			b.transitionTo(StateHalfOpen)
			allowed = true
		}

	case StateHalfOpen:
		// Trial call already in flight.
		allowed = false
	}

	RecordRequest(b.name, allowed)
	return allowed
}

// RecordSuccess records a successful call. It closes the circuit and
// resets the failure counter — the only place the counter resets.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	RecordSuccess(b.name)

	if b.state != StateClosed {
		b.transitionTo(StateClosed)
	}
	b.failures = 0
}

// RecordFailure records a failed call, incrementing the consecutive
// failure counter and refreshing the failure timestamp. It opens the
// circuit from half-open immediately, or from closed once the
// threshold is reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	RecordFailure(b.name)

	switch b.state {
	case StateHalfOpen:
		b.transitionTo(StateOpen)
	case StateClosed:
		if b.failures >= b.config.FailureThreshold {
			b.transitionTo(StateOpen)
		}
	}
}

// transitionTo moves the breaker to a new state. Caller must hold the
// lock.
func (b *Breaker) transitionTo(newState State) {
	oldState := b.state
	b.state = newState

	RecordStateChange(b.name, oldState, newState)
	b.logger.Info("circuit breaker state changed",
		observability.String("service", b.name),
		observability.String("from", oldState.String()),
		observability.String("to", newState.String()),
		observability.Int("consecutive_failures", b.failures),
	)
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot holds a point-in-time view of a breaker, surfaced in
// fast-fail responses and the gateway status endpoint.
type Snapshot struct {
	State       State     `json:"-"`
	StateName   string    `json:"state"`
	Failures    int       `json:"consecutive_failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
}

// Snapshot returns the current breaker state and counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:       b.state,
		StateName:   b.state.String(),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
}

// Name returns the service name this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}
