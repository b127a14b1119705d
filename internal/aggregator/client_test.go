package aggregator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listboard/gateway/internal/util"
)

func TestClientGetUnknownService(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.client.Get(context.Background(), "billing-service", "/anything", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrServiceNotFound)
}

func TestClientGetOpenBreakerSkipsNetwork(t *testing.T) {
	fx := newFixture(t)

	breaker := fx.bank.Get(userService)
	for i := 0; i < 3; i++ {
		breaker.RecordFailure()
	}

	_, err := fx.client.Get(context.Background(), userService, validatePath, testToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrCircuitOpen)
	assert.Equal(t, int64(0), fx.calls.user.Load())
}

func TestClientGetForwardsBearerToken(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.client.Get(context.Background(), userService, validatePath, testToken)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)

	// Without the token the same backend rejects the call.
	resp, err = fx.client.Get(context.Background(), userService, validatePath, "")
	require.NoError(t, err)
	assert.Equal(t, 401, resp.Status)
}

func TestClientGetNetworkFailureTripsBreaker(t *testing.T) {
	fx := newFixture(t)
	fx.registry.Register("flaky-service", "127.0.0.1:1", nil)

	_, err := fx.client.Get(context.Background(), "flaky-service", "/ping", "")
	require.Error(t, err)

	snap := fx.bank.Get("flaky-service").Snapshot()
	assert.Equal(t, 1, snap.Failures)
}

func TestClientGetDataUnwrapsEnvelope(t *testing.T) {
	fx := newFixture(t)

	data, err := fx.client.GetData(context.Background(), itemService, itemCountPath, testToken)
	require.NoError(t, err)

	var count struct {
		TotalItems int `json:"total_items"`
	}
	require.NoError(t, json.Unmarshal(data, &count))
	assert.Equal(t, 12, count.TotalItems)
}

func TestClientGetDataErrorStatus(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.client.GetData(context.Background(), userService, validatePath, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), userService)
}
