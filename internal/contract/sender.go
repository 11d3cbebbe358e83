package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Fallback gas limits, used when estimation fails for a reason other than
// a revert.
const (
	DefaultGasLimit uint64 = 200_000
	DeployGasLimit  uint64 = 3_000_000
)

// TxSigner signs transactions for one account.
type TxSigner interface {
	Address() string
	SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// Sender sends write transactions to contracts.
type Sender struct {
	client  *chain.EVMClient
	abi     abi.ABI
	entries []ABIEntry
	signer  TxSigner
	chainID *big.Int
}

// NewSender creates a Sender.
func NewSender(client *chain.EVMClient, entries []ABIEntry, signer TxSigner, chainID *big.Int) (*Sender, error) {
	parsed, err := Bind(entries)
	if err != nil {
		return nil, err
	}
	return &Sender{client: client, abi: parsed, entries: entries, signer: signer, chainID: chainID}, nil
}

// From returns the sending address.
func (s *Sender) From() string {
	return s.signer.Address()
}

// Simulate runs the call with eth_call from the sender's address. A revert
// is returned as the matching sale error when there is one.
func (s *Sender) Simulate(ctx context.Context, contractAddr string, value *big.Int, method string, args ...any) error {
	data, err := s.pack(value, method, args...)
	if err != nil {
		return err
	}
	ok, reason, err := s.client.SimulateCall(ctx, chain.CallMsg{
		From: s.From(), To: contractAddr, Data: data, Value: value,
	})
	if err != nil {
		return fmt.Errorf("simulating %s: %w", method, err)
	}
	if !ok {
		if se := sale.FromRevert(reason); se != nil {
			return se
		}
		return fmt.Errorf("%s would revert: %s", method, reason)
	}
	return nil
}

// Send signs and broadcasts a write call and returns the transaction hash.
func (s *Sender) Send(ctx context.Context, contractAddr string, value *big.Int, method string, args ...any) (string, error) {
	data, err := s.pack(value, method, args...)
	if err != nil {
		return "", err
	}
	return s.transact(ctx, contractAddr, value, data, DefaultGasLimit)
}

// DeployNftToken broadcasts the creation transaction of an NftToken sale
// and returns its hash.
func (s *Sender) DeployNftToken(ctx context.Context, bytecode []byte, baseURI string, cost *big.Int) (string, error) {
	data, err := chain.BuildDeployData(bytecode, baseURI, cost)
	if err != nil {
		return "", err
	}
	return s.transact(ctx, "", nil, data, DeployGasLimit)
}

func (s *Sender) pack(value *big.Int, method string, args ...any) ([]byte, error) {
	fn := Find(s.entries, "function", method)
	if fn == nil {
		return nil, fmt.Errorf("function %q not found in ABI", method)
	}
	if !fn.IsWriteFunction() {
		return nil, fmt.Errorf("function %q is not a write function", method)
	}
	if value != nil && value.Sign() > 0 && !fn.IsPayable() {
		return nil, fmt.Errorf("function %q is not payable", method)
	}
	data, err := s.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	return data, nil
}

// transact signs and sends an EIP-1559 transaction. An empty to creates a
// contract.
func (s *Sender) transact(ctx context.Context, to string, value *big.Int, data []byte, fallbackGas uint64) (string, error) {
	from := s.From()
	if value == nil {
		value = new(big.Int)
	}

	msg := chain.CallMsg{From: from, To: to, Data: data, Value: value}
	gas, err := s.client.EstimateGas(ctx, msg)
	switch {
	case err == nil:
		gas += gas / 5
	case isSaleRevert(err):
		return "", revertError(err)
	default:
		gas = fallbackGas
	}

	fees, err := s.client.SuggestFees(ctx)
	if err != nil {
		return "", fmt.Errorf("getting fees: %w", err)
	}
	nonce, err := s.client.GetPendingNonce(ctx, from)
	if err != nil {
		return "", fmt.Errorf("getting nonce: %w", err)
	}

	var toAddr *common.Address
	if to != "" {
		a := common.HexToAddress(to)
		toAddr = &a
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: fees.GasTipCap,
		GasFeeCap: fees.GasFeeCap,
		Gas:       gas,
		To:        toAddr,
		Value:     value,
		Data:      data,
	})

	raw, err := s.signer.SignTx(tx, s.chainID)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}
	hash, err := s.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("broadcasting transaction: %w", revertError(err))
	}
	return hash, nil
}

func isSaleRevert(err error) bool {
	var rpcErr *chain.RPCError
	return errors.As(err, &rpcErr) && sale.FromRevert(rpcErr.RevertReason()) != nil
}
