// Package health reports the gateway's own status: uptime, the
// registry's view of the backends, and the state of every circuit
// breaker.
package health

import (
	"time"

	"github.com/listboard/gateway/internal/circuitbreaker"
	"github.com/listboard/gateway/internal/registry"
)

// Status represents the gateway's overall condition.
type Status string

const (
	// StatusHealthy indicates all known backends are healthy and all
	// breakers are closed.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates at least one backend is unhealthy or a
	// breaker is not closed. The gateway itself keeps serving.
	StatusDegraded Status = "degraded"
)

// ServiceCounts summarises the registry contents.
type ServiceCounts struct {
	Total   int `json:"total"`
	Healthy int `json:"healthy"`
}

// Report is the self-status payload.
type Report struct {
	Status    Status                             `json:"status"`
	Version   string                             `json:"version,omitempty"`
	Uptime    string                             `json:"uptime"`
	Timestamp time.Time                          `json:"timestamp"`
	Services  ServiceCounts                      `json:"services"`
	Breakers  map[string]circuitbreaker.Snapshot `json:"breakers"`
}

// Checker derives status reports from the live registry and breaker
// bank.
type Checker struct {
	version   string
	registry  *registry.Registry
	bank      *circuitbreaker.Bank
	startTime time.Time
	now       func() time.Time
}

// CheckerOption is a functional option for configuring the checker.
type CheckerOption func(*Checker)

// WithCheckerClock replaces the time source, for tests.
func WithCheckerClock(now func() time.Time) CheckerOption {
	return func(c *Checker) {
		c.now = now
		c.startTime = now()
	}
}

// NewChecker creates a checker. Uptime is measured from this call.
func NewChecker(version string, reg *registry.Registry, bank *circuitbreaker.Bank, opts ...CheckerOption) *Checker {
	c := &Checker{
		version:   version,
		registry:  reg,
		bank:      bank,
		startTime: time.Now(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report computes the current status. Degradation is advisory: an
// unhealthy backend or an open breaker marks the gateway degraded
// without affecting request handling.
func (c *Checker) Report() Report {
	now := c.now()

	counts := ServiceCounts{}
	for _, rec := range c.registry.ListAll() {
		counts.Total++
		if rec.Healthy {
			counts.Healthy++
		}
	}

	breakers := c.bank.Snapshots()

	status := StatusHealthy
	if counts.Healthy < counts.Total {
		status = StatusDegraded
	}
	for _, snap := range breakers {
		if snap.State != circuitbreaker.StateClosed {
			status = StatusDegraded
			break
		}
	}

	return Report{
		Status:    status,
		Version:   c.version,
		Uptime:    now.Sub(c.startTime).Truncate(time.Second).String(),
		Timestamp: now,
		Services:  counts,
		Breakers:  breakers,
	}
}
