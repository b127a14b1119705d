// Package proxy forwards inbound requests to the backend resolved by
// the routing table, gated by the per-service circuit breaker and the
// registry's health view.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/listboard/gateway/internal/circuitbreaker"
	"github.com/listboard/gateway/internal/observability"
	"github.com/listboard/gateway/internal/registry"
	"github.com/listboard/gateway/internal/router"
	"github.com/listboard/gateway/internal/util"
)

// hopHeaders are headers that should not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder proxies requests to backend services.
type Forwarder struct {
	table    *router.Table
	registry *registry.Registry
	bank     *circuitbreaker.Bank
	client   *http.Client
	logger   observability.Logger
}

// ForwarderOption is a functional option for configuring the forwarder.
type ForwarderOption func(*Forwarder)

// WithForwarderLogger sets the logger for the forwarder.
func WithForwarderLogger(logger observability.Logger) ForwarderOption {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// WithForwarderClient sets the HTTP client used for downstream calls.
// Its timeout bounds each forwarded request.
func WithForwarderClient(client *http.Client) ForwarderOption {
	return func(f *Forwarder) {
		f.client = client
	}
}

// NewForwarder creates a forwarder with a 10 second downstream timeout.
func NewForwarder(table *router.Table, reg *registry.Registry, bank *circuitbreaker.Bank, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		table:    table,
		registry: reg,
		bank:     bank,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ServeHTTP implements http.Handler.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := f.table.Match(r.URL.Path)
	if !ok {
		util.WriteJSON(w, http.StatusNotFound, util.Fail("no route matches "+r.URL.Path))
		return
	}

	breaker := f.bank.Get(route.Service)
	if !breaker.Allow() {
		f.logger.Warn("fast-fail: circuit breaker open",
			observability.String("service", route.Service),
			observability.String("path", r.URL.Path),
		)
		recordProxied(route.Service, outcomeBreakerOpen)
		env := util.Fail(fmt.Sprintf("service %s unavailable: circuit breaker open", route.Service))
		env.Data = breaker.Snapshot()
		util.WriteJSON(w, http.StatusServiceUnavailable, env)
		return
	}

	rec, ok := f.registry.Discover(route.Service)
	if !ok {
		f.logger.Warn("fast-fail: discovery miss",
			observability.String("service", route.Service),
			observability.String("path", r.URL.Path),
		)
		recordProxied(route.Service, outcomeDiscoveryMiss)
		util.WriteJSON(w, http.StatusServiceUnavailable,
			util.Fail(fmt.Sprintf("service %s unavailable: not registered or unhealthy", route.Service)))
		return
	}

	f.forward(w, r, route, rec, breaker)
}

// forward dispatches the request to the resolved backend and relays
// the response.
func (f *Forwarder) forward(
	w http.ResponseWriter,
	r *http.Request,
	route router.Route,
	rec registry.ServiceRecord,
	breaker *circuitbreaker.Breaker,
) {
	outURL := fmt.Sprintf("http://%s%s", rec.Address, route.StripPrefix(r.URL.Path))
	if r.URL.RawQuery != "" {
		outURL += "?" + r.URL.RawQuery
	}

	// Deliberately not derived from the inbound request context: a
	// client disconnect does not cancel the in-flight downstream call.
	// The client timeout is the only bound.
	req, err := http.NewRequestWithContext(context.Background(), r.Method, outURL, r.Body)
	if err != nil {
		util.WriteJSON(w, http.StatusInternalServerError, util.Fail("failed to build downstream request"))
		return
	}

	copyHeaders(req.Header, r.Header)
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	req.Host = rec.Address

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		breaker.RecordFailure()
		recordProxied(route.Service, outcomeNetworkError)
		f.logger.Error("downstream call failed",
			observability.String("service", route.Service),
			observability.String("url", outURL),
			observability.Duration("elapsed", time.Since(start)),
			observability.Error(err),
		)
		util.WriteJSON(w, http.StatusServiceUnavailable,
			util.Fail(fmt.Sprintf("service %s unreachable: %v", route.Service, err)))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	// Any HTTP response counts as breaker success; backend error
	// statuses are relayed verbatim, not reinterpreted.
	breaker.RecordSuccess()
	recordProxied(route.Service, outcomeForwarded)
	observeLatency(route.Service, time.Since(start))

	relayHeaders := w.Header()
	copyHeaders(relayHeaders, resp.Header)
	for _, h := range hopHeaders {
		relayHeaders.Del(h)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		f.logger.Warn("failed to relay downstream body",
			observability.String("service", route.Service),
			observability.Error(err),
		)
	}
}

// copyHeaders copies all values from src into dst.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
