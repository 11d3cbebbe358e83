// Package sale implements the NftToken sale as an in-process state machine:
// mint-on-buy up to a fixed max supply, an owner-adjustable price and base
// URI, and owner withdrawal of the collected funds.
//
// Every mutating call is all-or-nothing. Changes are journaled while the call
// runs and reverted if a guard, the payout or the persistence step fails.
package sale

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxSupply is the supply cap of the NftToken contract.
const DefaultMaxSupply uint64 = 10

// TokenURISuffix is appended to baseURI + tokenId.
const TokenURISuffix = ".json"

// Bus topics.
const (
	topicRecord = "sale:record"
	topicFailed = "sale:failed"
)

// Config is the sale configuration. BaseURI and Cost are owner-adjustable,
// MaxSupply is fixed at construction.
type Config struct {
	BaseURI   string   `json:"baseURI"`
	Cost      *big.Int `json:"cost"`
	MaxSupply uint64   `json:"maxSupply"`
}

// Committer persists the outcome of a successful operation. The returned Tx
// is committed only after the payout of a withdrawal has been settled.
type Committer interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one unit of persisted work opened by a Committer.
type Tx interface {
	Write(ctx context.Context, state State, records []Record) error
	Commit() error
	Rollback() error
}

// Settler moves withdrawn funds to their recipient. A Settle error aborts
// the withdrawal.
type Settler interface {
	Settle(ctx context.Context, to common.Address, amount *big.Int) error
}

// Option configures a TokenSale.
type Option func(*TokenSale)

// WithMaxSupply overrides DefaultMaxSupply.
func WithMaxSupply(n uint64) Option {
	return func(s *TokenSale) { s.cfg.MaxSupply = n }
}

// WithCommitter persists every successful operation through c.
func WithCommitter(c Committer) Option {
	return func(s *TokenSale) { s.committer = c }
}

// WithSettler pays withdrawals out through st.
func WithSettler(st Settler) Option {
	return func(s *TokenSale) { s.settler = st }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *TokenSale) { s.logger = l }
}

// WithClock sets the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *TokenSale) { s.now = now }
}

type payout struct {
	to     common.Address
	amount *big.Int
}

// TokenSale is the sale state machine. It is safe for concurrent use; calls
// are serialized and token ids follow the serialization order.
type TokenSale struct {
	mu sync.RWMutex

	cfg         Config
	owner       common.Address
	totalMinted uint64
	owners      map[uint64]common.Address
	balances    map[common.Address]uint64
	held        *big.Int

	records []Record
	seq     uint64

	// in-flight call
	journal journal
	pending []Event
	payout  *payout

	committer Committer
	settler   Settler
	bus       evbus.Bus
	logger    *zap.Logger
	now       func() time.Time
}

func newTokenSale(opts []Option) *TokenSale {
	s := &TokenSale{
		cfg:      Config{MaxSupply: DefaultMaxSupply},
		owners:   make(map[uint64]common.Address),
		balances: make(map[common.Address]uint64),
		held:     new(big.Int),
		bus:      evbus.New(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New deploys a sale owned by owner with the given base URI and initial cost
// (in wei). The construction emits OwnershipTransferred(0x0, owner).
func New(owner common.Address, baseURI string, cost *big.Int, opts ...Option) (*TokenSale, error) {
	if !validCost(cost) {
		return nil, ErrInvalidCost
	}
	if owner == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	s := newTokenSale(opts)
	s.cfg.BaseURI = baseURI
	s.cfg.Cost = new(big.Int).Set(cost)
	s.owner = owner

	s.pending = append(s.pending, OwnershipTransferredEvent{NewOwner: owner})
	s.records = s.seal(uuid.NewString())
	s.seq = uint64(len(s.records))
	s.pending = s.pending[:0]

	s.logger.Info("sale deployed",
		zap.String("owner", owner.Hex()),
		zap.String("base_uri", baseURI),
		zap.String("cost", cost.String()),
		zap.Uint64("max_supply", s.cfg.MaxSupply))
	return s, nil
}

// SetBaseURI replaces the metadata base URI. Owner only.
func (s *TokenSale) SetBaseURI(ctx context.Context, caller common.Address, uri string) error {
	return s.apply(ctx, "setBaseURI", caller, func() error {
		if err := s.onlyOwner(caller); err != nil {
			return err
		}
		s.journal.append(baseURIChange{prev: s.cfg.BaseURI})
		s.cfg.BaseURI = uri
		s.emit(SetBaseURIEvent{NewURI: uri})
		return nil
	})
}

// SetCost replaces the price of one token, in wei. Owner only.
func (s *TokenSale) SetCost(ctx context.Context, caller common.Address, cost *big.Int) error {
	return s.apply(ctx, "setCost", caller, func() error {
		if err := s.onlyOwner(caller); err != nil {
			return err
		}
		if !validCost(cost) {
			return ErrInvalidCost
		}
		s.journal.append(costChange{prev: s.cfg.Cost})
		s.cfg.Cost = new(big.Int).Set(cost)
		s.emit(SetCostEvent{NewCost: new(big.Int).Set(cost)})
		return nil
	})
}

// Buy mints the next token to caller. amount must equal the current cost
// exactly, the supply must not be exhausted and caller must not be the zero
// address, checked in that order.
func (s *TokenSale) Buy(ctx context.Context, caller common.Address, amount *big.Int) (uint64, error) {
	var tokenID uint64
	err := s.apply(ctx, "buy", caller, func() error {
		if amount == nil || amount.Cmp(s.cfg.Cost) != 0 {
			return ErrIncorrectAmount
		}
		if s.totalMinted >= s.cfg.MaxSupply {
			return ErrSupplyExceeded
		}
		if caller == (common.Address{}) {
			return ErrMintToZeroAddress
		}
		tokenID = s.mint(caller)
		s.journal.append(heldChange{prev: s.held})
		s.held = new(big.Int).Add(s.held, amount)
		s.emit(
			TransferEvent{To: caller, TokenID: tokenID},
			BuyEvent{Buyer: caller, TokenID: tokenID, AmountPaid: new(big.Int).Set(amount)},
		)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return tokenID, nil
}

// Withdraw transfers the whole held balance to the owner and returns the
// amount. Owner only; fails when nothing is held.
func (s *TokenSale) Withdraw(ctx context.Context, caller common.Address) (*big.Int, error) {
	var amount *big.Int
	err := s.apply(ctx, "withdraw", caller, func() error {
		if err := s.onlyOwner(caller); err != nil {
			return err
		}
		if s.held.Sign() <= 0 {
			return ErrNothingToWithdraw
		}
		amount = s.held
		s.journal.append(heldChange{prev: s.held})
		s.held = new(big.Int)
		s.payout = &payout{to: s.owner, amount: amount}
		s.emit(WithdrawEvent{To: s.owner, Amount: new(big.Int).Set(amount)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(amount), nil
}

// TransferOwnership hands the owner role to newOwner. Owner only.
func (s *TokenSale) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	return s.apply(ctx, "transferOwnership", caller, func() error {
		if err := s.onlyOwner(caller); err != nil {
			return err
		}
		if newOwner == (common.Address{}) {
			return ErrZeroAddress
		}
		prev := s.owner
		s.journal.append(ownerChange{prev: prev})
		s.owner = newOwner
		s.emit(OwnershipTransferredEvent{PreviousOwner: prev, NewOwner: newOwner})
		return nil
	})
}

// TokenURI returns baseURI + tokenID + ".json" for a minted token.
func (s *TokenSale) TokenURI(tokenID uint64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists(tokenID) {
		return "", ErrTokenNotFound
	}
	return s.cfg.BaseURI + strconv.FormatUint(tokenID, 10) + TokenURISuffix, nil
}

// OwnerOf returns the holder of a minted token.
func (s *TokenSale) OwnerOf(tokenID uint64) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists(tokenID) {
		return common.Address{}, ErrTokenNotFound
	}
	return s.owners[tokenID], nil
}

// BalanceOf returns the number of tokens held by addr.
func (s *TokenSale) BalanceOf(addr common.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[addr]
}

// Owner returns the current owner.
func (s *TokenSale) Owner() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// MaxSupply returns the supply cap.
func (s *TokenSale) MaxSupply() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.MaxSupply
}

// BaseURI returns the metadata base URI.
func (s *TokenSale) BaseURI() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.BaseURI
}

// Cost returns the current price in wei.
func (s *TokenSale) Cost() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.cfg.Cost)
}

// TotalMinted returns the number of tokens minted so far.
func (s *TokenSale) TotalMinted() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalMinted
}

// Held returns the funds collected and not yet withdrawn, in wei.
func (s *TokenSale) Held() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.held)
}

// Events returns the records committed by this instance, oldest first.
func (s *TokenSale) Events() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Subscribe registers fn for every record committed from now on. Handlers
// run synchronously after the call that produced the record has returned
// its lock, in commit order.
func (s *TokenSale) Subscribe(fn func(Record)) error {
	return s.bus.Subscribe(topicRecord, fn)
}

// SubscribeFailures registers fn for every rejected or rolled back call.
func (s *TokenSale) SubscribeFailures(fn func(op string, err error)) error {
	return s.bus.Subscribe(topicFailed, fn)
}

// --- internal ---

// apply runs one mutating operation with all-or-nothing semantics.
func (s *TokenSale) apply(ctx context.Context, op string, caller common.Address, fn func() error) error {
	s.mu.Lock()
	s.journal.reset()
	s.pending = s.pending[:0]
	s.payout = nil

	records, err := s.run(ctx, fn)
	if err != nil {
		s.journal.revert(s)
		s.pending = s.pending[:0]
		s.payout = nil
		s.mu.Unlock()

		s.logger.Debug("sale call rejected",
			zap.String("op", op),
			zap.String("caller", caller.Hex()),
			zap.Error(err))
		s.bus.Publish(topicFailed, op, err)
		return err
	}
	s.records = append(s.records, records...)
	s.seq += uint64(len(records))
	s.journal.reset()
	s.pending = s.pending[:0]
	s.payout = nil
	s.mu.Unlock()

	if len(records) > 0 {
		s.logger.Info("sale call committed",
			zap.String("op", op),
			zap.String("caller", caller.Hex()),
			zap.String("call_id", records[0].CallID),
			zap.Int("events", len(records)))
	}
	for _, r := range records {
		s.bus.Publish(topicRecord, r)
	}
	return nil
}

// run executes fn, then persists and settles its outcome. Must be called
// with s.mu held; the caller reverts the journal on error.
func (s *TokenSale) run(ctx context.Context, fn func() error) ([]Record, error) {
	if err := fn(); err != nil {
		return nil, err
	}
	records := s.seal(uuid.NewString())

	var tx Tx
	if s.committer != nil {
		var err error
		tx, err = s.committer.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("opening commit: %w", err)
		}
		if err := tx.Write(ctx, s.snapshotLocked(len(records)), records); err != nil {
			tx.Rollback() //nolint:errcheck
			return nil, fmt.Errorf("writing state: %w", err)
		}
	}

	if s.payout != nil && s.settler != nil {
		if err := s.settler.Settle(ctx, s.payout.to, s.payout.amount); err != nil {
			if tx != nil {
				tx.Rollback() //nolint:errcheck
			}
			return nil, fmt.Errorf("settling withdrawal: %w", err)
		}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			if s.payout != nil && s.settler != nil {
				s.logger.Error("withdrawal settled but state commit failed",
					zap.String("to", s.payout.to.Hex()),
					zap.String("amount", s.payout.amount.String()),
					zap.Error(err))
			}
			return nil, fmt.Errorf("committing state: %w", err)
		}
	}
	return records, nil
}

// seal turns the pending events into records numbered after s.seq.
func (s *TokenSale) seal(callID string) []Record {
	if len(s.pending) == 0 {
		return nil
	}
	at := s.now().UTC()
	out := make([]Record, len(s.pending))
	for i, ev := range s.pending {
		out[i] = Record{
			Seq:    s.seq + uint64(i) + 1,
			CallID: callID,
			At:     at,
			Event:  ev,
		}
	}
	return out
}

func (s *TokenSale) emit(events ...Event) {
	s.pending = append(s.pending, events...)
}

func (s *TokenSale) mint(to common.Address) uint64 {
	s.totalMinted++
	id := s.totalMinted
	s.owners[id] = to
	s.balances[to]++
	s.journal.append(mintChange{tokenID: id, holder: to})
	return id
}

func (s *TokenSale) onlyOwner(caller common.Address) error {
	if caller != s.owner {
		return ErrUnauthorized
	}
	return nil
}

func (s *TokenSale) exists(tokenID uint64) bool {
	return tokenID >= 1 && tokenID <= s.totalMinted
}

func validCost(cost *big.Int) bool {
	return cost != nil && cost.Sign() >= 0
}
