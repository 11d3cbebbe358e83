package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url    string
	client *http.Client
	nextID atomic.Int64

	// PollInterval is the receipt polling period of WaitForReceipt.
	PollInterval time.Duration
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string) *EVMClient {
	return &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		PollInterval: 2 * time.Second,
	}
}

// URL returns the endpoint the client talks to.
func (c *EVMClient) URL() string { return c.url }

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// RevertReason returns the Error(string) reason carried by the error, from
// the ABI-encoded data when present, otherwise from the message.
func (e *RPCError) RevertReason() string {
	var data string
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &data) == nil && strings.HasPrefix(data, "0x") {
		if raw, err := hex.DecodeString(data[2:]); err == nil {
			if reason, err := abi.UnpackRevert(raw); err == nil {
				return reason
			}
		}
	}
	return extractRevertReason(e.Message)
}

// GetBalance returns the native balance of address in wei.
func (c *EVMClient) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	return c.callBig(ctx, "eth_getBalance", address, "latest")
}

// GetBlockNumber returns the latest block number.
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.callBig(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_chainId")
}

// GasPrice returns the current gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_gasPrice")
}

// GetNonce returns the confirmed transaction count of address.
func (c *EVMClient) GetNonce(ctx context.Context, address string) (uint64, error) {
	n, err := c.callBig(ctx, "eth_getTransactionCount", address, "latest")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// GetPendingNonce returns the transaction count including pending
// transactions.
func (c *EVMClient) GetPendingNonce(ctx context.Context, address string) (uint64, error) {
	n, err := c.callBig(ctx, "eth_getTransactionCount", address, "pending")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// CallMsg is the subset of a transaction used by eth_call and
// eth_estimateGas. An empty To means contract creation.
type CallMsg struct {
	From  string
	To    string
	Data  []byte
	Value *big.Int
}

func (m CallMsg) params() map[string]string {
	p := map[string]string{}
	if m.From != "" {
		p["from"] = m.From
	}
	if m.To != "" {
		p["to"] = m.To
	}
	if len(m.Data) > 0 {
		p["data"] = "0x" + hex.EncodeToString(m.Data)
	}
	if m.Value != nil && m.Value.Sign() > 0 {
		p["value"] = "0x" + m.Value.Text(16)
	}
	return p
}

// EstimateGas estimates the gas needed by msg.
func (c *EVMClient) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	n, err := c.callBig(ctx, "eth_estimateGas", msg.params())
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// CallContract runs msg with eth_call against the latest block and returns
// the raw return data.
func (c *EVMClient) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	var out string
	if err := c.call(ctx, &out, "eth_call", msg.params(), "latest"); err != nil {
		return nil, err
	}
	return decodeHex(out)
}

// SimulateCall runs msg with eth_call and reports whether it would succeed.
// A revert returns (false, reason, nil); transport errors return err.
func (c *EVMClient) SimulateCall(ctx context.Context, msg CallMsg) (bool, string, error) {
	_, err := c.CallContract(ctx, msg)
	if err == nil {
		return true, "", nil
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && isRevert(rpcErr) {
		return false, rpcErr.RevertReason(), nil
	}
	return false, "", err
}

func isRevert(e *RPCError) bool {
	msg := strings.ToLower(e.Message)
	return e.Code == 3 || strings.Contains(msg, "revert") || strings.Contains(msg, "execution")
}

// extractRevertReason pulls the reason out of an RPC error message.
func extractRevertReason(errMsg string) string {
	if idx := strings.Index(errMsg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(errMsg[idx+len("execution reverted:"):])
	}
	if idx := strings.Index(errMsg, "reverted with reason string '"); idx >= 0 {
		rest := errMsg[idx+len("reverted with reason string '"):]
		return strings.TrimSuffix(strings.TrimSpace(rest), "'")
	}
	return errMsg
}

// SendRawTransaction broadcasts a signed transaction and returns its hash.
func (c *EVMClient) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "eth_sendRawTransaction", "0x"+hex.EncodeToString(raw)); err != nil {
		return "", err
	}
	return hash, nil
}

// GetCode returns the bytecode at address; empty for an EOA.
func (c *EVMClient) GetCode(ctx context.Context, address string) ([]byte, error) {
	var out string
	if err := c.call(ctx, &out, "eth_getCode", address, "latest"); err != nil {
		return nil, err
	}
	return decodeHex(out)
}

// LogEntry holds one event log.
type LogEntry struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	TxHash      string   `json:"transactionHash"`
	LogIndex    string   `json:"logIndex"`
}

// Block returns the log's block number.
func (l LogEntry) Block() uint64 {
	n, _ := parseBigHex(l.BlockNumber)
	if n == nil {
		return 0
	}
	return n.Uint64()
}

// GetLogs queries the logs of address in [fromBlock, toBlock] whose first
// topic is any of topic0 (all logs when empty). Block bounds are hex
// quantities or tags such as "latest".
func (c *EVMClient) GetLogs(ctx context.Context, address string, topic0 []string, fromBlock, toBlock string) ([]LogEntry, error) {
	filter := map[string]interface{}{
		"address":   address,
		"fromBlock": fromBlock,
		"toBlock":   toBlock,
	}
	if len(topic0) > 0 {
		filter["topics"] = []interface{}{topic0}
	}
	var logs []LogEntry
	if err := c.call(ctx, &logs, "eth_getLogs", filter); err != nil {
		return nil, fmt.Errorf("getting logs: %w", err)
	}
	return logs, nil
}

// TxReceipt holds the receipt of a mined transaction.
type TxReceipt struct {
	Hash            string
	Status          uint64 // 1 = success, 0 = reverted
	BlockNumber     uint64
	GasUsed         uint64
	ContractAddress string // set when a contract was deployed
	Logs            []LogEntry
}

// GetTransactionReceipt fetches the receipt for hash. Returns nil, nil while
// the transaction is pending.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash string) (*TxReceipt, error) {
	var r *struct {
		Status          string     `json:"status"`
		BlockNumber     string     `json:"blockNumber"`
		GasUsed         string     `json:"gasUsed"`
		ContractAddress string     `json:"contractAddress"`
		Logs            []LogEntry `json:"logs"`
	}
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}

	receipt := &TxReceipt{Hash: hash, ContractAddress: r.ContractAddress, Logs: r.Logs}
	if s, ok := parseBigHex(r.Status); ok {
		receipt.Status = s.Uint64()
	}
	if bn, ok := parseBigHex(r.BlockNumber); ok {
		receipt.BlockNumber = bn.Uint64()
	}
	if gu, ok := parseBigHex(r.GasUsed); ok {
		receipt.GasUsed = gu.Uint64()
	}
	return receipt, nil
}

// WaitForReceipt polls until the transaction is mined, ctx is done or
// timeout expires. A reverted transaction returns its receipt and an error.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash string, timeout time.Duration) (*TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.GetTransactionReceipt(ctx, hash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("transaction %s not mined within %s", hash, timeout)
			}
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("transaction reverted (hash: %s)", hash)
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined within %s", hash, timeout)
		case <-ticker.C:
		}
	}
}

// Ping tests the endpoint and returns latency and block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.GetBlockNumber(ctx)
	return time.Since(start), blockNum, err
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// call performs method and decodes the result into out. A node error is
// returned as *RPCError.
func (c *EVMClient) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("parsing %s result: %w", method, err)
	}
	return nil
}

func (c *EVMClient) callBig(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	var hexStr string
	if err := c.call(ctx, &hexStr, method, params...); err != nil {
		return nil, err
	}
	n, ok := parseBigHex(hexStr)
	if !ok {
		return nil, fmt.Errorf("could not parse %s result: %q", method, hexStr)
	}
	return n, nil
}

func parseBigHex(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 16)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding hex: %w", err)
	}
	return b, nil
}
