package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listboard/gateway/internal/registry"
)

func addrOf(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return srv.Listener.Addr().String()
}

func TestSupervisor_MarksHealthyOn2xx(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	reg := registry.New()
	reg.Register("user-service", addrOf(t, backend), nil)
	reg.UpdateHealth("user-service", false)

	s := New(reg, time.Hour, time.Second)
	s.RunCycle(context.Background())

	_, ok := reg.Discover("user-service")
	assert.True(t, ok)
}

func TestSupervisor_MarksUnhealthyOnError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	reg := registry.New()
	reg.Register("item-service", addrOf(t, backend), nil)

	s := New(reg, time.Hour, time.Second)
	s.RunCycle(context.Background())

	_, ok := reg.Discover("item-service")
	assert.False(t, ok)
}

func TestSupervisor_MarksUnhealthyOnUnreachable(t *testing.T) {
	reg := registry.New()
	// Reserved TEST-NET-1 address; nothing listens there.
	reg.Register("list-service", "192.0.2.1:9", nil)

	s := New(reg, time.Hour, 100*time.Millisecond)
	s.RunCycle(context.Background())

	_, ok := reg.Discover("list-service")
	assert.False(t, ok)
}

func TestSupervisor_CustomStatusPath(t *testing.T) {
	var probedPath atomic.Value
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probedPath.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	reg := registry.New()
	reg.Register("user-service", addrOf(t, backend), map[string]string{"status_path": "/healthz"})

	s := New(reg, time.Hour, time.Second)
	s.RunCycle(context.Background())

	assert.Equal(t, "/healthz", probedPath.Load())
}

func TestSupervisor_SlowProbeDoesNotBlockSiblings(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer slow.Close()
	defer close(release)

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer fast.Close()

	reg := registry.New()
	reg.Register("slow-service", addrOf(t, slow), nil)
	reg.Register("fast-service", addrOf(t, fast), nil)
	reg.UpdateHealth("fast-service", false)

	s := New(reg, time.Hour, 200*time.Millisecond)

	start := time.Now()
	s.RunCycle(context.Background())
	elapsed := time.Since(start)

	// The cycle is bounded by the probe timeout, not by the sum of
	// probe durations.
	assert.Less(t, elapsed, time.Second)

	_, ok := reg.Discover("fast-service")
	assert.True(t, ok, "fast probe outcome applied despite slow sibling")
	_, ok = reg.Discover("slow-service")
	assert.False(t, ok, "timed-out probe marks the service unhealthy")
}

func TestSupervisor_StartStop(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	reg := registry.New()
	reg.Register("user-service", addrOf(t, backend), nil)
	reg.UpdateHealth("user-service", false)

	s := New(reg, 10*time.Millisecond, time.Second)
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		_, ok := reg.Discover("user-service")
		return ok
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	// Stop is idempotent.
	s.Stop()
}
