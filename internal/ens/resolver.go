// Package ens resolves ENS names for sale commands that take an address
// (transfer-ownership, balance-of) and labels the owner in "info".
package ens

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ENS registry, deployed at the same address on Ethereum mainnet and Sepolia.
const registryAddr = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"

// Function selectors.
var (
	selResolver = []byte{0x01, 0x78, 0xb8, 0xbf} // resolver(bytes32)
	selAddr     = []byte{0x3b, 0x3b, 0x57, 0xde} // addr(bytes32)
	selName     = []byte{0x69, 0x1f, 0x34, 0x31} // name(bytes32)
)

// ErrNoRecord is returned when a name or address has no ENS record.
var ErrNoRecord = errors.New("no ENS record")

// Supported reports whether ENS lives on chainName.
func Supported(chainName string) bool {
	return chainName == "ethereum"
}

// IsName reports whether s looks like an ENS name rather than an address
// or a wallet name.
func IsName(s string) bool {
	return !common.IsHexAddress(s) && strings.Contains(s, ".") && !strings.HasSuffix(s, ".")
}

// Resolve returns the address record of name.
func Resolve(ctx context.Context, client *chain.EVMClient, name string) (common.Address, error) {
	node := Namehash(strings.ToLower(name))

	resolver, err := lookupResolver(ctx, client, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	out, err := client.CallContract(ctx, chain.CallMsg{To: resolver.Hex(), Data: withNode(selAddr, node)})
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver: %w", err)
	}
	addr, ok := wordAddress(out)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: %w", name, ErrNoRecord)
	}
	return addr, nil
}

// ReverseLookup returns the primary name of address.
func ReverseLookup(ctx context.Context, client *chain.EVMClient, address common.Address) (string, error) {
	reverse := strings.ToLower(strings.TrimPrefix(address.Hex(), "0x")) + ".addr.reverse"
	node := Namehash(reverse)

	resolver, err := lookupResolver(ctx, client, node)
	if err != nil {
		return "", fmt.Errorf("reverse record of %s: %w", address.Hex(), err)
	}
	out, err := client.CallContract(ctx, chain.CallMsg{To: resolver.Hex(), Data: withNode(selName, node)})
	if err != nil {
		return "", fmt.Errorf("querying reverse resolver: %w", err)
	}
	name, err := decodeString(out)
	if err != nil || name == "" {
		return "", fmt.Errorf("reverse record of %s: %w", address.Hex(), ErrNoRecord)
	}
	return name, nil
}

// Namehash implements the EIP-137 namehash:
// namehash("") = 0x00…00, namehash("a.b") = keccak(namehash("b") ‖ keccak("a")).
// Names must be normalised by the caller.
func Namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := keccak256([]byte(labels[i]))
		copy(node[:], keccak256(node[:], label))
	}
	return node
}

// NamehashHex is Namehash as 64 hex characters.
func NamehashHex(name string) string {
	h := Namehash(name)
	return hex.EncodeToString(h[:])
}

func lookupResolver(ctx context.Context, client *chain.EVMClient, node [32]byte) (common.Address, error) {
	out, err := client.CallContract(ctx, chain.CallMsg{To: registryAddr, Data: withNode(selResolver, node)})
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry: %w", err)
	}
	resolver, ok := wordAddress(out)
	if !ok {
		return common.Address{}, fmt.Errorf("no resolver set: %w", ErrNoRecord)
	}
	return resolver, nil
}

func withNode(selector []byte, node [32]byte) []byte {
	return append(append([]byte{}, selector...), node[:]...)
}

func keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// wordAddress reads an address from the first 32-byte word. The zero
// address counts as missing.
func wordAddress(out []byte) (common.Address, bool) {
	if len(out) < 32 {
		return common.Address{}, false
	}
	addr := common.BytesToAddress(out[12:32])
	return addr, addr != (common.Address{})
}

var stringArgs = func() abi.Arguments {
	t, _ := abi.NewType("string", "", nil)
	return abi.Arguments{{Type: t}}
}()

func decodeString(out []byte) (string, error) {
	vals, err := stringArgs.Unpack(out)
	if err != nil {
		return "", err
	}
	return vals[0].(string), nil
}
