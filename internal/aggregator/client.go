// Package aggregator answers composite endpoints by combining results
// from multiple backends, going through the same discovery and circuit
// breaker path as the proxy.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/listboard/gateway/internal/circuitbreaker"
	"github.com/listboard/gateway/internal/observability"
	"github.com/listboard/gateway/internal/registry"
	"github.com/listboard/gateway/internal/util"
)

// Client issues downstream calls gated by the breaker bank and the
// registry's health view.
type Client struct {
	registry *registry.Registry
	bank     *circuitbreaker.Bank
	http     *http.Client
	logger   observability.Logger
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for downstream calls.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithClientLogger sets the logger for the client.
func WithClientLogger(logger observability.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a downstream client with a 10 second call timeout.
func NewClient(reg *registry.Registry, bank *circuitbreaker.Bank, opts ...ClientOption) *Client {
	c := &Client{
		registry: reg,
		bank:     bank,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is the outcome of a downstream call that produced an HTTP
// response.
type Response struct {
	Status int
	Body   []byte
}

// Get issues a GET against the named service, forwarding the bearer
// token when present. It returns an error for breaker rejections,
// discovery misses, and network failures; an HTTP error status is
// returned in the Response for the caller to interpret.
func (c *Client) Get(ctx context.Context, service, path, token string) (*Response, error) {
	breaker := c.bank.Get(service)
	if !breaker.Allow() {
		return nil, util.NewDownstreamError(service, util.ErrCircuitOpen)
	}

	rec, ok := c.registry.Discover(service)
	if !ok {
		return nil, util.NewDownstreamError(service, util.ErrServiceNotFound)
	}

	url := fmt.Sprintf("http://%s%s", rec.Address, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, util.NewDownstreamError(service, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		breaker.RecordFailure()
		c.logger.Warn("aggregator downstream call failed",
			observability.String("service", service),
			observability.String("url", url),
			observability.Error(err),
		)
		return nil, util.NewDownstreamError(service, err)
	}
	defer func() { _ = resp.Body.Close() }()

	breaker.RecordSuccess()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, util.NewDownstreamError(service, err)
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// GetData calls Get and unwraps the backend's response envelope,
// treating error statuses and envelope failures as errors.
func (c *Client) GetData(ctx context.Context, service, path, token string) (json.RawMessage, error) {
	resp, err := c.Get(ctx, service, path, token)
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, util.NewDownstreamError(service, fmt.Errorf("status %d", resp.Status))
	}

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, util.NewDownstreamError(service, fmt.Errorf("decode response: %w", err))
	}
	if !env.Success {
		return nil, util.NewDownstreamError(service, fmt.Errorf("backend error: %s", env.Error))
	}
	return env.Data, nil
}
