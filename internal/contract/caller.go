package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Caller calls read-only (view/pure) contract functions.
type Caller struct {
	client  *chain.EVMClient
	abi     abi.ABI
	entries []ABIEntry
}

// NewCaller creates a Caller for the given ABI.
func NewCaller(client *chain.EVMClient, entries []ABIEntry) (*Caller, error) {
	parsed, err := Bind(entries)
	if err != nil {
		return nil, err
	}
	return &Caller{client: client, abi: parsed, entries: entries}, nil
}

// Call calls a read function and returns its decoded outputs.
func (c *Caller) Call(ctx context.Context, contractAddr, method string, args ...any) ([]any, error) {
	fn := Find(c.entries, "function", method)
	if fn == nil {
		return nil, fmt.Errorf("function %q not found in ABI", method)
	}
	if !fn.IsReadFunction() {
		return nil, fmt.Errorf("function %q is not a read function (stateMutability: %s)", method, fn.StateMutability)
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	out, err := c.client.CallContract(ctx, chain.CallMsg{To: contractAddr, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, revertError(err))
	}
	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return values, nil
}

// revertError maps a revert carrying one of the sale's reasons to the sale
// error, leaving any other error untouched.
func revertError(err error) error {
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		if se := sale.FromRevert(rpcErr.RevertReason()); se != nil {
			return se
		}
	}
	return err
}

// one returns the single output of a call as T.
func one[T any](values []any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if len(values) != 1 {
		return zero, fmt.Errorf("expected 1 output, got %d", len(values))
	}
	v, ok := values[0].(T)
	if !ok {
		return zero, fmt.Errorf("unexpected output type %T", values[0])
	}
	return v, nil
}
