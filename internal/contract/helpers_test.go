package contract_test

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/nftsale/internal/contract"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	saleAddr  = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	ownerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	buyerAddr = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	// first Hardhat account
	ownerKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

var testCost = big.NewInt(10_000_000_000_000_000)

// builtinABI parses the built-in NftToken ABI with go-ethereum.
func builtinABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := contract.Bind(contract.GetBuiltinABI(contract.NftTokenID))
	require.NoError(t, err)
	return parsed
}

// returns ABI-encodes the outputs of method.
func returns(t *testing.T, method string, values ...any) string {
	t.Helper()
	out, err := builtinABI(t).Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(out)
}

// selectorOf returns the hex selector of method without 0x.
func selectorOf(t *testing.T, method string) string {
	t.Helper()
	return hex.EncodeToString(builtinABI(t).Methods[method].ID)
}

type rpcReq struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int64             `json:"id"`
}

// fakeNode is a JSON-RPC node answering eth_call by selector.
type fakeNode struct {
	t       *testing.T
	mu      sync.Mutex
	calls   map[string]string // selector -> result
	reverts map[string]string // selector -> revert reason
	results map[string]any    // other methods
	// estimateErr makes eth_estimateGas fail with a non-revert error
	estimateErr string
	sent        [][]byte
	srv         *httptest.Server
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	n := &fakeNode{
		t:       t,
		calls:   map[string]string{},
		reverts: map[string]string{},
		results: map[string]any{
			"eth_chainId":             "0x7a69",
			"eth_gasPrice":            "0x3b9aca00",
			"eth_getTransactionCount": "0x5",
			"eth_estimateGas":         "0x186a0",
			"eth_getBalance":          "0x0",
			"eth_getBlockByNumber":    map[string]any{"baseFeePerGas": "0x7"},
			"eth_sendRawTransaction":  "0xhash",
		},
	}
	n.srv = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.srv.Close)
	return n
}

func (n *fakeNode) URL() string { return n.srv.URL }

func (n *fakeNode) onCall(selector, result string) { n.calls[selector] = result }

func (n *fakeNode) onRevert(selector, reason string) { n.reverts[selector] = reason }

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	reply := map[string]any{"jsonrpc": "2.0", "id": req.ID}

	switch req.Method {
	case "eth_call", "eth_estimateGas":
		var msg struct {
			Data string `json:"data"`
		}
		json.Unmarshal(req.Params[0], &msg) //nolint:errcheck
		sel := ""
		if len(msg.Data) >= 10 {
			sel = msg.Data[2:10]
		}
		if req.Method == "eth_estimateGas" && n.estimateErr != "" {
			reply["error"] = map[string]any{"code": -32000, "message": n.estimateErr}
			break
		}
		if reason, ok := n.reverts[sel]; ok {
			reply["error"] = map[string]any{"code": 3, "message": "execution reverted: " + reason}
			break
		}
		if req.Method == "eth_call" {
			if result, ok := n.calls[sel]; ok {
				reply["result"] = result
				break
			}
			reply["result"] = "0x"
			break
		}
		reply["result"] = n.results[req.Method]
	case "eth_sendRawTransaction":
		var raw string
		json.Unmarshal(req.Params[0], &raw) //nolint:errcheck
		b, _ := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
		n.mu.Lock()
		n.sent = append(n.sent, b)
		n.mu.Unlock()
		reply["result"] = n.results[req.Method]
	default:
		result, ok := n.results[req.Method]
		if !ok {
			reply["error"] = map[string]any{"code": -32601, "message": "method not found"}
			break
		}
		reply["result"] = result
	}
	json.NewEncoder(w).Encode(reply) //nolint:errcheck
}

// lastTx decodes the last broadcast transaction.
func (n *fakeNode) lastTx(t *testing.T) *types.Transaction {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no transaction was broadcast")
	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(n.sent[len(n.sent)-1]))
	return tx
}

// keySigner signs with a raw key.
type keySigner struct{ key string }

func (s keySigner) Address() string {
	k, _ := crypto.HexToECDSA(s.key)
	return crypto.PubkeyToAddress(k.PublicKey).Hex()
}

func (s keySigner) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	k, err := crypto.HexToECDSA(s.key)
	if err != nil {
		return nil, err
	}
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), k)
	if err != nil {
		return nil, err
	}
	return signed.MarshalBinary()
}

var _ contract.TxSigner = keySigner{}

func addr(s string) common.Address { return common.HexToAddress(s) }

func hexOf(b []byte) string { return hex.EncodeToString(b) }
