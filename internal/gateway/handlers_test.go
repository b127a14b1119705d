package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listboard/gateway/internal/aggregator"
	"github.com/listboard/gateway/internal/circuitbreaker"
	"github.com/listboard/gateway/internal/health"
	"github.com/listboard/gateway/internal/proxy"
	"github.com/listboard/gateway/internal/registry"
	"github.com/listboard/gateway/internal/router"
	"github.com/listboard/gateway/internal/util"
)

type fixture struct {
	server   *Server
	registry *registry.Registry
	bank     *circuitbreaker.Bank
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.New()
	bank := circuitbreaker.NewBank(nil, nil)
	table := router.DefaultTable()
	forwarder := proxy.NewForwarder(table, reg, bank)
	agg := aggregator.New(aggregator.NewClient(reg, bank), nil)
	checker := health.NewChecker("test", reg, bank)

	handler := NewHandler(reg, agg, checker, forwarder, nil)
	server := NewServer(DefaultServerConfig(), handler, nil)
	return &fixture{server: server, registry: reg, bank: bank}
}

func (fx *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	fx.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) util.Envelope {
	t.Helper()
	var env util.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestStatusEndpoint(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRegistryEndpoints(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(http.MethodPost, "/registry",
		`{"name": "user-service", "address": "10.0.0.1:9101", "metadata": {"zone": "a"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)

	rec = fx.do(http.MethodGet, "/registry", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-service")
	assert.Contains(t, rec.Body.String(), "10.0.0.1:9101")

	rec = fx.do(http.MethodDelete, "/registry/user-service", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(http.MethodDelete, "/registry/user-service", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterServiceValidation(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(http.MethodPost, "/registry", `{"name": "user-service"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestDashboardWithoutToken(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestSearchWithoutQuery(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnmatchedPathFallsThroughToProxy(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(http.MethodGet, "/totally/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestProxyRouteForwards(t *testing.T) {
	fx := newFixture(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success": true, "data": {"id": 42}}`))
	}))
	t.Cleanup(backend.Close)
	fx.registry.Register("user-service", strings.TrimPrefix(backend.URL, "http://"), nil)

	rec := fx.do(http.MethodGet, "/api/users/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id": 42`)
}

func TestBearerTokenExtraction(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	fx.server.Engine().ServeHTTP(rec, req)

	// A non-bearer scheme is treated as no credential at all.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", decodeEnvelope(t, rec).Error)
}

func TestRecoveryMiddleware(t *testing.T) {
	fx := newFixture(t)
	fx.server.Engine().GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	rec := fx.do(http.MethodGet, "/boom", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeEnvelope(t, rec).Error)
}

func TestClientRequestIDIsHonoured(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(RequestIDHeader, "req-abc")
	rec := httptest.NewRecorder()
	fx.server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, "req-abc", rec.Header().Get(RequestIDHeader))
}
