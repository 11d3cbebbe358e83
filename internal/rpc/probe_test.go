package rpc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mohsinsiddi/nftsale/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockServer answers eth_blockNumber with block.
func blockServer(t *testing.T, block string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int64 `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"jsonrpc": "2.0", "id": req.ID, "result": block,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

// ---------------------------------------------------------------------------
// Probe
// ---------------------------------------------------------------------------

func TestProbeKeepsOrder(t *testing.T) {
	a := blockServer(t, "0x64")
	dead := deadURL(t)

	got := rpc.Probe(context.Background(), []string{a.URL, dead})
	require.Len(t, got, 2)

	assert.Equal(t, a.URL, got[0].URL)
	assert.True(t, got[0].Checked)
	assert.True(t, got[0].Healthy)
	assert.Equal(t, uint64(100), got[0].BlockNumber)

	assert.Equal(t, dead, got[1].URL)
	assert.True(t, got[1].Checked)
	assert.False(t, got[1].Healthy)
}

// ---------------------------------------------------------------------------
// Best
// ---------------------------------------------------------------------------

func TestBestSkipsDeadEndpoint(t *testing.T) {
	live := blockServer(t, "0x10")
	url, err := rpc.Best(context.Background(), []string{deadURL(t), live.URL}, rpc.AlgorithmFailover)
	require.NoError(t, err)
	assert.Equal(t, live.URL, url)
}

func TestBestSingleURLNotProbed(t *testing.T) {
	url, err := rpc.Best(context.Background(), []string{"http://127.0.0.1:1"}, rpc.AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:1", url)
}

func TestBestNoURLs(t *testing.T) {
	_, err := rpc.Best(context.Background(), nil, rpc.AlgorithmFastest)
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)
}

func TestBestAllDead(t *testing.T) {
	_, err := rpc.Best(context.Background(), []string{deadURL(t), deadURL(t)}, rpc.AlgorithmFastest)
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)
}
