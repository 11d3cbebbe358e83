package chain

import (
	"fmt"
	"math/big"
)

// BuildDeployData returns the creation payload of the NftToken contract:
// bytecode followed by the ABI-encoded constructor (string baseURI,
// uint256 cost).
//
// Layout after the bytecode:
//
//	word 0: offset of baseURI (0x40)
//	word 1: cost
//	word 2: len(baseURI)
//	word 3…: baseURI, right-padded to 32 bytes
func BuildDeployData(bytecode []byte, baseURI string, cost *big.Int) ([]byte, error) {
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("empty bytecode")
	}
	if cost == nil || cost.Sign() < 0 {
		return nil, fmt.Errorf("cost must be a non-negative amount")
	}
	if cost.BitLen() > 256 {
		return nil, fmt.Errorf("cost does not fit in uint256")
	}

	out := make([]byte, 0, len(bytecode)+32*3+roundUp32(len(baseURI)))
	out = append(out, bytecode...)
	out = appendUint256(out, 0x40)
	out = appendBigInt(out, cost)
	out = appendString(out, baseURI)
	return out, nil
}

func roundUp32(n int) int {
	return (n + 31) / 32 * 32
}

func appendUint256(b []byte, v uint64) []byte {
	return appendBigInt(b, new(big.Int).SetUint64(v))
}

func appendBigInt(b []byte, v *big.Int) []byte {
	var word [32]byte
	v.FillBytes(word[:])
	return append(b, word[:]...)
}

// appendString appends the length word and the padded bytes of s.
func appendString(b []byte, s string) []byte {
	b = appendUint256(b, uint64(len(s)))
	b = append(b, s...)
	if pad := roundUp32(len(s)) - len(s); pad > 0 {
		b = append(b, make([]byte, pad)...)
	}
	return b
}
