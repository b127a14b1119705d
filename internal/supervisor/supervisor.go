// Package supervisor periodically probes each registered backend's
// status endpoint and writes the outcome back into the service
// registry. It is independent of the circuit breakers: a service can
// be registry-unhealthy yet breaker-closed until the next proxied call
// or probe reconciles them.
package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/listboard/gateway/internal/observability"
	"github.com/listboard/gateway/internal/registry"
)

// statusPathKey is the registry metadata key overriding the probed
// path. Backends without it are probed at /status.
const statusPathKey = "status_path"

// defaultStatusPath is the conventional self-reported status endpoint.
const defaultStatusPath = "/status"

// Supervisor runs the periodic health probe cycle.
type Supervisor struct {
	registry *registry.Registry
	client   *http.Client
	interval time.Duration
	logger   observability.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// SupervisorOption is a functional option for configuring the supervisor.
type SupervisorOption func(*Supervisor)

// WithProbeClient sets the HTTP client used for probes. The client's
// timeout bounds each probe.
func WithProbeClient(client *http.Client) SupervisorOption {
	return func(s *Supervisor) {
		s.client = client
	}
}

// WithLogger sets the logger for the supervisor.
func WithLogger(logger observability.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// New creates a supervisor probing every interval with the given
// per-probe timeout.
func New(reg *registry.Registry, interval, probeTimeout time.Duration, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		registry: reg,
		client:   &http.Client{Timeout: probeTimeout},
		interval: interval,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the probe loop. It returns immediately.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.running = true

	go s.run(ctx)

	s.logger.Info("health supervisor started",
		observability.Duration("interval", s.interval),
		observability.Duration("probe_timeout", s.client.Timeout),
	)
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// Stop cancels the probe loop and waits for it to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.cancel()
	<-s.done
	s.running = false
	s.logger.Info("health supervisor stopped")
}

// RunCycle takes a registry snapshot and probes every service
// concurrently. One slow or failing probe never delays its siblings;
// each outcome is written back independently.
func (s *Supervisor) RunCycle(ctx context.Context) {
	snapshot := s.registry.ListAll()
	if len(snapshot) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, rec := range snapshot {
		wg.Add(1)
		go func(rec registry.ServiceRecord) {
			defer wg.Done()
			healthy := s.probe(ctx, rec)
			s.registry.UpdateHealth(rec.Name, healthy)
		}(rec)
	}
	wg.Wait()
}

// probe issues a single bounded status request and reports whether the
// service answered with a 2xx.
func (s *Supervisor) probe(ctx context.Context, rec registry.ServiceRecord) bool {
	path := rec.Metadata[statusPathKey]
	if path == "" {
		path = defaultStatusPath
	}
	url := fmt.Sprintf("http://%s%s", rec.Address, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.logger.Error("failed to build probe request",
			observability.String("service", rec.Name),
			observability.Error(err),
		)
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("health probe failed",
			observability.String("service", rec.Name),
			observability.String("url", url),
			observability.Error(err),
		)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	healthy := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !healthy {
		s.logger.Warn("health probe returned non-2xx",
			observability.String("service", rec.Name),
			observability.Int("status", resp.StatusCode),
		)
	}
	return healthy
}
