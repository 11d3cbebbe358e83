package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimals between ether and wei.
const EtherDecimals = 18

// ParseEther converts a decimal ether amount ("0.01") to wei. It rejects
// negative values and more than 18 fractional digits.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("ether amount %q is negative", s)
	}
	wei := d.Shift(EtherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("ether amount %q has more than %d decimals", s, EtherDecimals)
	}
	return wei.BigInt(), nil
}

// ParseAmount accepts either an ether amount ("0.01", "0.01eth") or a wei
// amount with a "wei" suffix ("10000000000000000wei").
func ParseAmount(s string) (*big.Int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := strings.CutSuffix(s, "wei"); ok {
		n, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("invalid wei amount %q", s)
		}
		return n, nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "ether"), "eth"))
	return ParseEther(s)
}

// FormatEther renders wei as an exact ether decimal with trailing zeros
// dropped ("10000000000000000" → "0.01").
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals).String()
}
