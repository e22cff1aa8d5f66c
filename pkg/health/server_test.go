package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashdesk/intent-engine/pkg/circuitbreaker"
	"github.com/hashdesk/intent-engine/pkg/dedup"
	"github.com/hashdesk/intent-engine/pkg/registry"
)

func newTestServer(breakers *circuitbreaker.Set, connected func(int) bool, apiKey string) *httptest.Server {
	srv := NewServer("0", registry.Default(), breakers, dedup.NewStore(time.Minute, time.Hour), connected, apiKey, nil)
	return httptest.NewServer(srv.Handler())
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(nil, nil, "")
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("all chains connected", func(t *testing.T) {
		ts := newTestServer(nil, func(int) bool { return true }, "")
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("disconnected chain makes the server unready", func(t *testing.T) {
		ts := newTestServer(nil, func(chainID int) bool { return chainID != 137 }, "")
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("no connectivity probe checks configuration only", func(t *testing.T) {
		ts := newTestServer(nil, nil, "")
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestStatusEndpoint(t *testing.T) {
	breakers := circuitbreaker.NewSet(true, 1, time.Minute, time.Minute, nil)
	breakers.For(137).RecordFailure()

	ts := newTestServer(breakers, func(int) bool { return true }, "")
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status map[string]map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))

	require.Contains(t, status, "chain_1")
	assert.Equal(t, "ETHEREUM", status["chain_1"]["name"])
	assert.Equal(t, "closed", status["chain_1"]["circuit"])
	assert.Equal(t, true, status["chain_1"]["connected"])

	require.Contains(t, status, "chain_137")
	assert.Equal(t, "open", status["chain_137"]["circuit"])
}

func TestCircuitResetEndpoint(t *testing.T) {
	breakers := circuitbreaker.NewSet(true, 1, time.Minute, time.Minute, nil)
	breakers.For(1).RecordFailure()
	require.True(t, breakers.For(1).IsOpen())

	ts := newTestServer(breakers, nil, "")
	defer ts.Close()

	t.Run("reset closes the breaker", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/circuit/reset?chain=1", "", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, breakers.For(1).IsOpen())
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/circuit/reset?chain=1")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("missing chain parameter", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/circuit/reset", "", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed chain parameter", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/circuit/reset?chain=abc", "", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestMetricsAuth(t *testing.T) {
	ts := newTestServer(nil, nil, "secret-key")
	defer ts.Close()

	get := func(authorization string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
		require.NoError(t, err)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	tests := []struct {
		name          string
		authorization string
		want          int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret-key", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "Bearer secret-key", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(tt.authorization)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestMetricsNoKeyConfigured(t *testing.T) {
	ts := newTestServer(nil, nil, "")
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
