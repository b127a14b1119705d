package aggregator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/listboard/gateway/internal/circuitbreaker"
	"github.com/listboard/gateway/internal/registry"
	"github.com/listboard/gateway/internal/util"
)

const testToken = "tok-123"

// backendCalls counts how many requests each stub backend actually
// received, so short-circuit tests can assert zero network traffic.
type backendCalls struct {
	user  atomic.Int64
	lists atomic.Int64
	items atomic.Int64
}

type fixture struct {
	agg      *Aggregator
	client   *Client
	registry *registry.Registry
	bank     *circuitbreaker.Bank
	calls    *backendCalls
}

// writeEnv mimics the backends' response convention.
func writeEnv(w http.ResponseWriter, status int, env util.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

const listsJSON = `[
	{"id": 1, "name": "Weekly Groceries", "status": "active", "estimated_total": 42.5, "updated_at": "2025-06-03T10:00:00Z"},
	{"id": 2, "name": "Hardware", "status": "completed", "estimated_total": 120, "updated_at": "2025-06-01T09:00:00Z"},
	{"id": 3, "name": "Party groceries", "status": "active", "estimated_total": 17.25, "updated_at": "2025-06-02T18:30:00Z"}
]`

// newFixture wires an aggregator against three stub backends registered
// under the canonical service names.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	calls := &backendCalls{}

	user := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.user.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeEnv(w, http.StatusUnauthorized, util.Fail("invalid token"))
			return
		}
		writeEnv(w, http.StatusOK, util.Success(map[string]interface{}{
			"id": 7, "email": "shopper@example.com",
		}))
	}))
	t.Cleanup(user.Close)

	lists := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.lists.Add(1)
		writeEnv(w, http.StatusOK, util.Success(json.RawMessage(listsJSON)))
	}))
	t.Cleanup(lists.Close)

	items := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.items.Add(1)
		switch r.URL.Path {
		case itemCountPath:
			writeEnv(w, http.StatusOK, util.Success(map[string]int{"total_items": 12}))
		case itemQueryPath:
			writeEnv(w, http.StatusOK, util.Success(json.RawMessage(
				`[{"id": 9, "name": "milk", "match": "`+r.URL.Query().Get("q")+`"}]`)))
		default:
			writeEnv(w, http.StatusNotFound, util.Fail("not found"))
		}
	}))
	t.Cleanup(items.Close)

	reg := registry.New()
	reg.Register(userService, hostPort(user.URL), nil)
	reg.Register(listService, hostPort(lists.URL), nil)
	reg.Register(itemService, hostPort(items.URL), nil)

	bank := circuitbreaker.NewBank(nil, nil)
	client := NewClient(reg, bank)
	return &fixture{
		agg:      New(client, nil),
		client:   client,
		registry: reg,
		bank:     bank,
		calls:    calls,
	}
}

func hostPort(serverURL string) string {
	return strings.TrimPrefix(serverURL, "http://")
}
