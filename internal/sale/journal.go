package sale

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// journalEntry is a modification to the sale state that can be reverted.
type journalEntry interface {
	revert(*TokenSale)
}

// journal records the changes applied by the operation in flight so a failed
// guard, payout or commit can roll the sale back to where it started.
type journal struct {
	entries []journalEntry
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

// revert undoes every recorded change, newest first, and empties the journal.
func (j *journal) revert(s *TokenSale) {
	for i := len(j.entries) - 1; i >= 0; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:0]
}

func (j *journal) reset() {
	j.entries = j.entries[:0]
}

type (
	baseURIChange struct {
		prev string
	}
	costChange struct {
		prev *big.Int
	}
	ownerChange struct {
		prev common.Address
	}
	mintChange struct {
		tokenID uint64
		holder  common.Address
	}
	heldChange struct {
		prev *big.Int
	}
)

func (ch baseURIChange) revert(s *TokenSale) {
	s.cfg.BaseURI = ch.prev
}

func (ch costChange) revert(s *TokenSale) {
	s.cfg.Cost = ch.prev
}

func (ch ownerChange) revert(s *TokenSale) {
	s.owner = ch.prev
}

func (ch mintChange) revert(s *TokenSale) {
	delete(s.owners, ch.tokenID)
	if s.balances[ch.holder]--; s.balances[ch.holder] == 0 {
		delete(s.balances, ch.holder)
	}
	s.totalMinted--
}

func (ch heldChange) revert(s *TokenSale) {
	s.held = ch.prev
}
