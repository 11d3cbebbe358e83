package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs EVM transactions for one account. Keys held in a keystore
// are read only when a transaction is signed.
type Signer struct {
	address string
	key     func() (*ecdsa.PrivateKey, error)
}

// NewSigner creates a signer for a stored signing wallet.
func NewSigner(w *Wallet, ks KeystoreBackend) (*Signer, error) {
	if w.Type != TypeSigning {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign", w.Name)
	}
	return &Signer{
		address: w.Address,
		key: func() (*ecdsa.PrivateKey, error) {
			hexKey, err := ks.Retrieve(w.KeyRef)
			if err != nil {
				return nil, fmt.Errorf("retrieving key: %w", err)
			}
			return parseKey(hexKey)
		},
	}, nil
}

// NewKeySigner creates a signer from a raw hex private key, such as the
// PRIVATE_KEY of a deploy environment.
func NewKeySigner(hexKey string) (*Signer, error) {
	key, err := parseKey(hexKey)
	if err != nil {
		return nil, err
	}
	return &Signer{
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		key:     func() (*ecdsa.PrivateKey, error) { return key, nil },
	}, nil
}

// SignTx signs tx with a London signer and returns the raw signed bytes.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	key, err := s.key()
	if err != nil {
		return nil, err
	}
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, nil
}

// Address returns the signing address.
func (s *Signer) Address() string {
	return s.address
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}
