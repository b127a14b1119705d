package circuitbreaker

import (
	"sync"

	"github.com/listboard/gateway/internal/observability"
)

// Bank manages one circuit breaker per downstream service name.
type Bank struct {
	breakers sync.Map
	config   *Config
	logger   observability.Logger
	opts     []BreakerOption
}

// NewBank creates a bank that hands out breakers sharing the given
// config. Extra options (clock, logger) are applied to every breaker
// it creates.
func NewBank(config *Config, logger observability.Logger, opts ...BreakerOption) *Bank {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Bank{
		config: config,
		logger: logger,
		opts:   append([]BreakerOption{WithBreakerLogger(logger)}, opts...),
	}
}

// Get returns the breaker for the named service, creating it closed
// with a zero counter on first use.
func (bk *Bank) Get(name string) *Breaker {
	if value, ok := bk.breakers.Load(name); ok {
		return value.(*Breaker)
	}

	b := NewBreaker(name, bk.config, bk.opts...)
	actual, loaded := bk.breakers.LoadOrStore(name, b)
	if loaded {
		return actual.(*Breaker)
	}

	bk.logger.Debug("created circuit breaker", observability.String("service", name))
	return b
}

// Snapshots returns the current state of every breaker keyed by
// service name.
func (bk *Bank) Snapshots() map[string]Snapshot {
	out := make(map[string]Snapshot)
	bk.breakers.Range(func(key, value interface{}) bool {
		out[key.(string)] = value.(*Breaker).Snapshot()
		return true
	})
	return out
}
