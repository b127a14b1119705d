package registry

import (
	"context"
	"sync"
	"time"

	"github.com/listboard/gateway/internal/observability"
)

// Reaper periodically removes registry records whose health has not
// been confirmed within the TTL window.
type Reaper struct {
	registry *Registry
	interval time.Duration
	ttl      time.Duration
	logger   observability.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewReaper creates a reaper sweeping at the given interval with the
// given staleness TTL.
func NewReaper(registry *Registry, interval, ttl time.Duration, logger observability.Logger) *Reaper {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Reaper{
		registry: registry,
		interval: interval,
		ttl:      ttl,
		logger:   logger,
	}
}

// Start begins the reap loop. It returns immediately; the loop runs
// until Stop is called or the context is canceled.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.running = true

	go r.run(ctx)

	r.logger.Info("registry reaper started",
		observability.Duration("interval", r.interval),
		observability.Duration("ttl", r.ttl),
	)
}

func (r *Reaper) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.registry.Reap(r.ttl); removed > 0 {
				r.logger.Info("reap sweep removed stale services",
					observability.Int("removed", removed),
				)
			}
		}
	}
}

// Stop cancels the reap loop and waits for it to exit.
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}

	r.cancel()
	<-r.done
	r.running = false
	r.logger.Info("registry reaper stopped")
}
