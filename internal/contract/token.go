package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is a prepared write call on the sale contract.
type Call struct {
	Method string
	Args   []any
	Value  *big.Int
}

// BuyCall pays value for the next token.
func BuyCall(value *big.Int) Call { return Call{Method: "buy", Value: value} }

// SetCostCall changes the price of a token.
func SetCostCall(cost *big.Int) Call { return Call{Method: "setCost", Args: []any{cost}} }

// SetBaseURICall changes the metadata base URI.
func SetBaseURICall(uri string) Call { return Call{Method: "setBaseURI", Args: []any{uri}} }

// WithdrawCall sends the contract balance to the owner.
func WithdrawCall() Call { return Call{Method: "withdraw"} }

// TransferOwnershipCall hands the sale to newOwner.
func TransferOwnershipCall(newOwner common.Address) Call {
	return Call{Method: "transferOwnership", Args: []any{newOwner}}
}

// Info is a snapshot of the sale's public accessors.
type Info struct {
	Address   string
	Name      string
	Symbol    string
	Owner     common.Address
	MaxSupply uint64
	BaseURI   string
	Cost      *big.Int
	Balance   *big.Int // contract balance, i.e. unwithdrawn proceeds
}

// Token is a typed binding of a deployed NftToken sale.
type Token struct {
	address string
	caller  *Caller
	sender  *Sender // nil for read-only use
}

// NewToken binds the sale at address. sender may be nil.
func NewToken(address string, caller *Caller, sender *Sender) *Token {
	return &Token{address: address, caller: caller, sender: sender}
}

// Address returns the contract address.
func (t *Token) Address() string { return t.address }

func (t *Token) call(ctx context.Context, method string, args ...any) ([]any, error) {
	return t.caller.Call(ctx, t.address, method, args...)
}

// Owner returns owner().
func (t *Token) Owner(ctx context.Context) (common.Address, error) {
	return one[common.Address](t.call(ctx, "owner"))
}

// MaxSupply returns MAX_SUPPLY().
func (t *Token) MaxSupply(ctx context.Context) (uint64, error) {
	n, err := one[*big.Int](t.call(ctx, "MAX_SUPPLY"))
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// BaseURI returns baseURI().
func (t *Token) BaseURI(ctx context.Context) (string, error) {
	return one[string](t.call(ctx, "baseURI"))
}

// Cost returns cost() in wei.
func (t *Token) Cost(ctx context.Context) (*big.Int, error) {
	return one[*big.Int](t.call(ctx, "cost"))
}

// BalanceOf returns the number of tokens held by owner.
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return one[*big.Int](t.call(ctx, "balanceOf", owner))
}

// OwnerOf returns the holder of tokenID.
func (t *Token) OwnerOf(ctx context.Context, tokenID uint64) (common.Address, error) {
	return one[common.Address](t.call(ctx, "ownerOf", new(big.Int).SetUint64(tokenID)))
}

// TokenURI returns the metadata URI of tokenID.
func (t *Token) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	return one[string](t.call(ctx, "tokenURI", new(big.Int).SetUint64(tokenID)))
}

// Info reads every public accessor. Name and symbol are optional.
func (t *Token) Info(ctx context.Context) (*Info, error) {
	info := &Info{Address: t.address}
	var err error
	if info.Owner, err = t.Owner(ctx); err != nil {
		return nil, err
	}
	if info.MaxSupply, err = t.MaxSupply(ctx); err != nil {
		return nil, err
	}
	if info.BaseURI, err = t.BaseURI(ctx); err != nil {
		return nil, err
	}
	if info.Cost, err = t.Cost(ctx); err != nil {
		return nil, err
	}
	if info.Balance, err = t.caller.client.GetBalance(ctx, t.address); err != nil {
		return nil, err
	}
	info.Name, _ = one[string](t.call(ctx, "name"))
	info.Symbol, _ = one[string](t.call(ctx, "symbol"))
	return info, nil
}

// Simulate dry-runs c from the sender's account.
func (t *Token) Simulate(ctx context.Context, c Call) error {
	if t.sender == nil {
		return fmt.Errorf("read-only binding cannot simulate %s", c.Method)
	}
	return t.sender.Simulate(ctx, t.address, c.Value, c.Method, c.Args...)
}

// Send broadcasts c and returns the transaction hash.
func (t *Token) Send(ctx context.Context, c Call) (string, error) {
	if t.sender == nil {
		return "", fmt.Errorf("read-only binding cannot send %s", c.Method)
	}
	return t.sender.Send(ctx, t.address, c.Value, c.Method, c.Args...)
}
