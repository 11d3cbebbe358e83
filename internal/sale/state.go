package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// State is a point-in-time copy of the sale, as persisted by a Committer.
// Balances are derived from Owners and not stored.
type State struct {
	Config      Config                    `json:"config"`
	Owner       common.Address            `json:"owner"`
	TotalMinted uint64                    `json:"totalMinted"`
	Owners      map[uint64]common.Address `json:"owners"`
	Held        *big.Int                  `json:"held"`
	// LastSeq is the sequence number of the newest record.
	LastSeq uint64 `json:"lastSeq"`
}

// Snapshot returns a copy of the current state.
func (s *TokenSale) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(0)
}

// snapshotLocked copies the state with LastSeq advanced by the records the
// in-flight call is about to commit.
func (s *TokenSale) snapshotLocked(sealed int) State {
	owners := make(map[uint64]common.Address, len(s.owners))
	for id, addr := range s.owners {
		owners[id] = addr
	}
	return State{
		Config: Config{
			BaseURI:   s.cfg.BaseURI,
			Cost:      new(big.Int).Set(s.cfg.Cost),
			MaxSupply: s.cfg.MaxSupply,
		},
		Owner:       s.owner,
		TotalMinted: s.totalMinted,
		Owners:      owners,
		Held:        new(big.Int).Set(s.held),
		LastSeq:     s.seq + uint64(sealed),
	}
}

// Validate checks the invariants a restored state must hold: token ids are
// exactly 1..TotalMinted, the supply cap is respected and amounts are
// non-negative.
func (st State) Validate() error {
	if !validCost(st.Config.Cost) {
		return ErrInvalidCost
	}
	if st.Owner == (common.Address{}) {
		return ErrZeroAddress
	}
	if st.Held == nil || st.Held.Sign() < 0 {
		return fmt.Errorf("held balance must be non-negative")
	}
	if st.TotalMinted > st.Config.MaxSupply {
		return fmt.Errorf("%d tokens minted over a supply of %d", st.TotalMinted, st.Config.MaxSupply)
	}
	if uint64(len(st.Owners)) != st.TotalMinted {
		return fmt.Errorf("%d token owners recorded for %d minted tokens", len(st.Owners), st.TotalMinted)
	}
	for id := uint64(1); id <= st.TotalMinted; id++ {
		if _, ok := st.Owners[id]; !ok {
			return fmt.Errorf("token %d missing from owners", id)
		}
	}
	return nil
}

// Restore rebuilds a sale from a persisted state. Records committed from
// here on continue after st.LastSeq; Events only returns those.
func Restore(st State, opts ...Option) (*TokenSale, error) {
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sale state: %w", err)
	}
	s := newTokenSale(opts)
	s.cfg = Config{
		BaseURI:   st.Config.BaseURI,
		Cost:      new(big.Int).Set(st.Config.Cost),
		MaxSupply: st.Config.MaxSupply,
	}
	s.owner = st.Owner
	s.totalMinted = st.TotalMinted
	for id, addr := range st.Owners {
		s.owners[id] = addr
		s.balances[addr]++
	}
	s.held = new(big.Int).Set(st.Held)
	s.seq = st.LastSeq

	s.logger.Debug("sale restored",
		zap.String("owner", s.owner.Hex()),
		zap.Uint64("total_minted", s.totalMinted),
		zap.Uint64("last_seq", s.seq))
	return s, nil
}
