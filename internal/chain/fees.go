package chain

import (
	"context"
	"math/big"
)

// Fees are the EIP-1559 fee parameters of a new transaction.
type Fees struct {
	GasTipCap *big.Int
	GasFeeCap *big.Int
	BaseFee   *big.Int // nil on chains without a base fee
}

// SuggestFees derives fee caps from eth_gasPrice and the base fee of the
// latest block: the fee cap is twice the base fee plus the tip, or twice the
// gas price when no base fee is reported.
func (c *EVMClient) SuggestFees(ctx context.Context) (*Fees, error) {
	gp, err := c.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	fees := &Fees{GasTipCap: gp, GasFeeCap: new(big.Int).Mul(gp, big.NewInt(2))}

	var block *struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	if err := c.call(ctx, &block, "eth_getBlockByNumber", "latest", false); err == nil && block != nil {
		if bf, ok := parseBigHex(block.BaseFeePerGas); ok {
			fees.BaseFee = bf
			if bf.Cmp(gp) < 0 {
				fees.GasTipCap = new(big.Int).Sub(gp, bf)
			}
			fees.GasFeeCap = new(big.Int).Add(new(big.Int).Mul(bf, big.NewInt(2)), fees.GasTipCap)
		}
	}
	return fees, nil
}

// WeiToGwei converts wei to gwei for display.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetFloat64(1e9),
	).Float64()
	return f
}
