package sale

import (
	"errors"
	"strings"
)

// Errors. The messages are the revert reasons of the deployed NftToken
// contract so a failed on-chain call can be mapped back with FromRevert.
var (
	ErrUnauthorized      = errors.New("Ownable: caller is not the owner")
	ErrIncorrectAmount   = errors.New("NFT: incorrect amount")
	ErrSupplyExceeded    = errors.New("NFT: max total supply exceeded")
	ErrNothingToWithdraw = errors.New("NFT: no ether in the contact")
	ErrTokenNotFound     = errors.New("ERC721: invalid token ID")
	ErrZeroAddress       = errors.New("Ownable: new owner is the zero address")
	ErrMintToZeroAddress = errors.New("ERC721: mint to the zero address")
	ErrInvalidCost       = errors.New("NFT: cost must be a non-negative amount")
)

var revertErrors = []error{
	ErrUnauthorized,
	ErrIncorrectAmount,
	ErrSupplyExceeded,
	ErrNothingToWithdraw,
	ErrTokenNotFound,
	ErrZeroAddress,
	ErrMintToZeroAddress,
}

// FromRevert maps a revert reason reported by a node (for example
// "execution reverted: NFT: incorrect amount") to the matching sale error.
// It returns nil when the reason is not one the contract produces.
func FromRevert(reason string) error {
	for _, err := range revertErrors {
		if strings.Contains(reason, err.Error()) {
			return err
		}
	}
	return nil
}

// Code returns a short machine name for a sale error, or "" for any other
// error. Used for metrics labels and API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrIncorrectAmount):
		return "incorrect_amount"
	case errors.Is(err, ErrSupplyExceeded):
		return "supply_exceeded"
	case errors.Is(err, ErrNothingToWithdraw):
		return "nothing_to_withdraw"
	case errors.Is(err, ErrTokenNotFound):
		return "token_not_found"
	case errors.Is(err, ErrZeroAddress), errors.Is(err, ErrMintToZeroAddress):
		return "zero_address"
	case errors.Is(err, ErrInvalidCost):
		return "invalid_cost"
	}
	return ""
}
