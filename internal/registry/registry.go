// Package registry provides the service registry: a durable directory
// mapping logical service names to their network location and health.
package registry

import (
	"sync"
	"time"

	"github.com/listboard/gateway/internal/observability"
)

// ServiceRecord describes one registered backend service. The name is
// the unique key; all other fields are bookkeeping owned by the registry.
type ServiceRecord struct {
	Name            string            `json:"name"`
	Address         string            `json:"address"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RegisteredAt    time.Time         `json:"registered_at"`
	LastHealthCheck time.Time         `json:"last_health_check"`
	Healthy         bool              `json:"healthy"`
}

// clone returns a copy safe to hand to callers.
func (r *ServiceRecord) clone() ServiceRecord {
	out := *r
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Registry is the in-memory service directory with best-effort file
// persistence. The in-memory view is authoritative for the running
// process; storage failures are logged and swallowed.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*ServiceRecord
	store   Store
	logger  observability.Logger
	now     func() time.Time
}

// Option is a functional option for configuring the registry.
type Option func(*Registry)

// WithLogger sets the logger for the registry.
func WithLogger(logger observability.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithStore sets the persistence store for the registry.
func WithStore(store Store) Option {
	return func(r *Registry) {
		r.store = store
	}
}

// WithClock sets the time source, letting tests advance time
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates a registry, loading any previously persisted records.
func New(opts ...Option) *Registry {
	r := &Registry{
		records: make(map[string]*ServiceRecord),
		store:   NopStore(),
		logger:  observability.NopLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	records, err := r.store.Load()
	if err != nil {
		r.logger.Warn("failed to load persisted registry, starting empty",
			observability.Error(err),
		)
		records = nil
	}
	for name := range records {
		rec := records[name]
		r.records[name] = &rec
	}

	recordServiceCount(len(r.records))
	return r
}

// Register upserts a record for the named service, marking it healthy
// and stamping both timestamps. Re-registration overwrites prior
// metadata.
func (r *Registry) Register(name, address string, metadata map[string]string) ServiceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec := &ServiceRecord{
		Name:            name,
		Address:         address,
		Metadata:        metadata,
		RegisteredAt:    now,
		LastHealthCheck: now,
		Healthy:         true,
	}
	r.records[name] = rec
	r.persistLocked()

	r.logger.Info("service registered",
		observability.String("service", name),
		observability.String("address", address),
	)
	recordServiceCount(len(r.records))

	return rec.clone()
}

// Unregister removes the named record, reporting whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[name]; !ok {
		return false
	}
	delete(r.records, name)
	r.persistLocked()

	r.logger.Info("service unregistered", observability.String("service", name))
	recordServiceCount(len(r.records))
	return true
}

// Discover returns the record for the named service only if it exists
// and is currently healthy.
func (r *Registry) Discover(name string) (ServiceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	if !ok || !rec.Healthy {
		r.logger.Debug("discovery miss",
			observability.String("service", name),
			observability.Bool("registered", ok),
		)
		return ServiceRecord{}, false
	}
	return rec.clone(), true
}

// UpdateHealth flips the healthy flag and refreshes the last-check
// timestamp. It reports false if the service is unknown.
func (r *Registry) UpdateHealth(name string, healthy bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[name]
	if !ok {
		return false
	}
	rec.Healthy = healthy
	rec.LastHealthCheck = r.now()
	r.persistLocked()
	RecordHealthUpdate(healthy)

	if !healthy {
		r.logger.Warn("service marked unhealthy", observability.String("service", name))
	}
	return true
}

// ListAll returns a snapshot copy of every record.
func (r *Registry) ListAll() []ServiceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ServiceRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.clone())
	}
	return out
}

// Reap removes every record whose last health check is older than ttl,
// returning the number of removed records. Persistence happens only
// when something was removed.
func (r *Registry) Reap(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for name, rec := range r.records {
		if now.Sub(rec.LastHealthCheck) > ttl {
			delete(r.records, name)
			removed++
			r.logger.Info("reaped stale service",
				observability.String("service", name),
				observability.Time("last_health_check", rec.LastHealthCheck),
			)
		}
	}

	if removed > 0 {
		r.persistLocked()
		recordServiceCount(len(r.records))
		recordReaped(removed)
	}
	return removed
}

// Flush persists the current records. Called on shutdown.
func (r *Registry) Flush() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.persistLocked()
}

// persistLocked writes the current records through the store. The
// caller must hold at least a read lock. Storage errors are absorbed.
func (r *Registry) persistLocked() {
	snapshot := make(map[string]ServiceRecord, len(r.records))
	for name, rec := range r.records {
		snapshot[name] = rec.clone()
	}

	if err := r.store.Save(snapshot); err != nil {
		r.logger.Error("failed to persist registry", observability.Error(err))
	}
}
