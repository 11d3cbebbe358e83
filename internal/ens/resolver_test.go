package ens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Namehash — EIP-137 vectors
// ---------------------------------------------------------------------------

func TestNamehashVectors(t *testing.T) {
	assert.Equal(t, strings.Repeat("0", 64), NamehashHex(""))
	assert.Equal(t, "93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae", NamehashHex("eth"))
	assert.Equal(t, "de9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f", NamehashHex("foo.eth"))
}

func TestNamehashDistinct(t *testing.T) {
	assert.NotEqual(t, Namehash("alice.eth"), Namehash("bob.eth"))
	assert.NotEqual(t, Namehash("test.eth"), Namehash("sub.test.eth"))
	assert.Equal(t, Namehash("test.eth"), Namehash("test.eth"))
}

func TestIsName(t *testing.T) {
	assert.True(t, IsName("vitalik.eth"))
	assert.True(t, IsName("sub.drop.eth"))
	assert.False(t, IsName("alice"))
	assert.False(t, IsName("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"))
	assert.False(t, IsName("trailing."))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("ethereum"))
	assert.False(t, Supported("base"))
}

// ---------------------------------------------------------------------------
// mock node answering eth_call in order
// ---------------------------------------------------------------------------

func ensRPCMock(t *testing.T, results ...string) *httptest.Server {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")

		if req.Method == "eth_call" && calls < len(results) {
			result := results[calls]
			calls++
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": -32601, "message": "method not found"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func word(addr string) string {
	return "0x000000000000000000000000" + strings.TrimPrefix(strings.ToLower(addr), "0x")
}

const (
	publicResolver = "0x4976fb03c32e5b8cfe2b6ccb31c09ba78ebaba41"
	vitalik        = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
)

// ---------------------------------------------------------------------------
// Resolve
// ---------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	srv := ensRPCMock(t, word(publicResolver), word(vitalik))

	addr, err := Resolve(context.Background(), chain.NewEVMClient(srv.URL), "Vitalik.eth")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(vitalik), addr)
}

func TestResolveNoResolver(t *testing.T) {
	srv := ensRPCMock(t, "0x"+strings.Repeat("0", 64))

	_, err := Resolve(context.Background(), chain.NewEVMClient(srv.URL), "nonexistent.eth")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRecord)
	assert.Contains(t, err.Error(), "no resolver")
}

func TestResolveNoAddress(t *testing.T) {
	srv := ensRPCMock(t, word(publicResolver), "0x"+strings.Repeat("0", 64))

	_, err := Resolve(context.Background(), chain.NewEVMClient(srv.URL), "empty.eth")
	assert.ErrorIs(t, err, ErrNoRecord)
}

// ---------------------------------------------------------------------------
// ReverseLookup
// ---------------------------------------------------------------------------

func TestReverseLookup(t *testing.T) {
	encodedName := "0x" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"000000000000000000000000000000000000000000000000000000000000000b" +
		"766974616c696b2e657468000000000000000000000000000000000000000000" // "vitalik.eth"
	srv := ensRPCMock(t, word(publicResolver), encodedName)

	name, err := ReverseLookup(context.Background(), chain.NewEVMClient(srv.URL), common.HexToAddress(vitalik))
	require.NoError(t, err)
	assert.Equal(t, "vitalik.eth", name)
}

func TestReverseLookupNoResolver(t *testing.T) {
	srv := ensRPCMock(t, "0x"+strings.Repeat("0", 64))

	_, err := ReverseLookup(context.Background(), chain.NewEVMClient(srv.URL), common.HexToAddress(vitalik))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverse record")
}

// ---------------------------------------------------------------------------
// decoding helpers
// ---------------------------------------------------------------------------

func TestWordAddress(t *testing.T) {
	out := common.FromHex(word(vitalik))
	addr, ok := wordAddress(out)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(vitalik), addr)

	_, ok = wordAddress(make([]byte, 32))
	assert.False(t, ok)
	_, ok = wordAddress([]byte{0xab, 0xcd})
	assert.False(t, ok)
}

func TestDecodeString(t *testing.T) {
	out := common.FromHex("0x" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000005" +
		"68656c6c6f000000000000000000000000000000000000000000000000000000")
	s, err := decodeString(out)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	_, err = decodeString(nil)
	assert.Error(t, err)
}
