package sale

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURI = "https://ipfs.io/ipfs/QmTrjsP7zCF47anH6kBLgAmjjwd769p5PS8ffyfVUJtpCf/"

var (
	ownerAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	buyerAddr = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	otherAddr = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")

	// 0.01 ether
	testCost = big.NewInt(10_000_000_000_000_000)
)

func newTestSale(t *testing.T, opts ...Option) *TokenSale {
	t.Helper()
	s, err := New(ownerAddr, testBaseURI, testCost, opts...)
	require.NoError(t, err)
	return s
}

func buyN(t *testing.T, s *TokenSale, buyer common.Address, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.Buy(context.Background(), buyer, s.Cost())
		require.NoError(t, err)
	}
}

func eventNames(records []Record) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Event.Name()
	}
	return names
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNewInitialState(t *testing.T) {
	s := newTestSale(t)
	assert.Equal(t, ownerAddr, s.Owner())
	assert.Equal(t, DefaultMaxSupply, s.MaxSupply())
	assert.Equal(t, testBaseURI, s.BaseURI())
	assert.Equal(t, 0, s.Cost().Cmp(testCost))
	assert.Equal(t, uint64(0), s.TotalMinted())
	assert.Equal(t, 0, s.Held().Sign())
}

func TestNewEmitsOwnershipTransferred(t *testing.T) {
	s := newTestSale(t)
	records := s.Events()
	require.Len(t, records, 1)
	assert.Equal(t, uint64(1), records[0].Seq)
	assert.Equal(t, OwnershipTransferredEvent{NewOwner: ownerAddr}, records[0].Event)
}

func TestNewRejectsNegativeCost(t *testing.T) {
	_, err := New(ownerAddr, testBaseURI, big.NewInt(-1))
	assert.ErrorIs(t, err, ErrInvalidCost)
}

func TestNewRejectsZeroOwner(t *testing.T) {
	_, err := New(common.Address{}, testBaseURI, testCost)
	assert.ErrorIs(t, err, ErrZeroAddress)
}

func TestNewWithMaxSupply(t *testing.T) {
	s := newTestSale(t, WithMaxSupply(3))
	assert.Equal(t, uint64(3), s.MaxSupply())
}

func TestNewCopiesCost(t *testing.T) {
	cost := big.NewInt(5)
	s, err := New(ownerAddr, testBaseURI, cost)
	require.NoError(t, err)
	cost.SetInt64(99)
	assert.Equal(t, int64(5), s.Cost().Int64())
}

// ---------------------------------------------------------------------------
// SetBaseURI / SetCost
// ---------------------------------------------------------------------------

func TestSetBaseURIByOwner(t *testing.T) {
	s := newTestSale(t)
	require.NoError(t, s.SetBaseURI(context.Background(), ownerAddr, "ipfs://new/"))
	assert.Equal(t, "ipfs://new/", s.BaseURI())

	records := s.Events()
	assert.Equal(t, SetBaseURIEvent{NewURI: "ipfs://new/"}, records[len(records)-1].Event)
}

func TestSetBaseURIRejectsNonOwner(t *testing.T) {
	s := newTestSale(t)
	err := s.SetBaseURI(context.Background(), buyerAddr, "ipfs://evil/")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, testBaseURI, s.BaseURI())
	assert.Len(t, s.Events(), 1)
}

func TestSetBaseURIEmptyAllowed(t *testing.T) {
	s := newTestSale(t)
	require.NoError(t, s.SetBaseURI(context.Background(), ownerAddr, ""))
	buyN(t, s, buyerAddr, 1)
	uri, err := s.TokenURI(1)
	require.NoError(t, err)
	assert.Equal(t, "1.json", uri)
}

func TestSetCostByOwner(t *testing.T) {
	s := newTestSale(t)
	require.NoError(t, s.SetCost(context.Background(), ownerAddr, big.NewInt(42)))
	assert.Equal(t, int64(42), s.Cost().Int64())

	records := s.Events()
	ev, ok := records[len(records)-1].Event.(SetCostEvent)
	require.True(t, ok)
	assert.Equal(t, int64(42), ev.NewCost.Int64())
}

func TestSetCostRejectsNonOwner(t *testing.T) {
	s := newTestSale(t)
	err := s.SetCost(context.Background(), buyerAddr, big.NewInt(1))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, s.Cost().Cmp(testCost))
}

func TestSetCostRejectsNegative(t *testing.T) {
	s := newTestSale(t)
	err := s.SetCost(context.Background(), ownerAddr, big.NewInt(-5))
	assert.ErrorIs(t, err, ErrInvalidCost)
	assert.Equal(t, 0, s.Cost().Cmp(testCost))
}

func TestSetCostZeroMakesTokensFree(t *testing.T) {
	s := newTestSale(t)
	require.NoError(t, s.SetCost(context.Background(), ownerAddr, new(big.Int)))
	id, err := s.Buy(context.Background(), buyerAddr, new(big.Int))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, 0, s.Held().Sign())
}

// ---------------------------------------------------------------------------
// Buy
// ---------------------------------------------------------------------------

func TestBuyMintsSequentialIDs(t *testing.T) {
	s := newTestSale(t)
	for want := uint64(1); want <= 3; want++ {
		id, err := s.Buy(context.Background(), buyerAddr, testCost)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, uint64(3), s.TotalMinted())
	assert.Equal(t, uint64(3), s.BalanceOf(buyerAddr))
	assert.Equal(t, 0, s.Held().Cmp(new(big.Int).Mul(testCost, big.NewInt(3))))
}

func TestBuyEmitsTransferThenBuy(t *testing.T) {
	s := newTestSale(t)
	_, err := s.Buy(context.Background(), buyerAddr, testCost)
	require.NoError(t, err)

	records := s.Events()
	require.Len(t, records, 3)
	assert.Equal(t, []string{EventOwnershipTransferred, EventTransfer, EventBuy}, eventNames(records))
	assert.Equal(t, TransferEvent{To: buyerAddr, TokenID: 1}, records[1].Event)

	buy, ok := records[2].Event.(BuyEvent)
	require.True(t, ok)
	assert.Equal(t, buyerAddr, buy.Buyer)
	assert.Equal(t, uint64(1), buy.TokenID)
	assert.Equal(t, 0, buy.AmountPaid.Cmp(testCost))

	// both events of one call share the call id
	assert.Equal(t, records[1].CallID, records[2].CallID)
	assert.NotEqual(t, records[0].CallID, records[1].CallID)
	assert.Equal(t, uint64(2), records[1].Seq)
	assert.Equal(t, uint64(3), records[2].Seq)
}

func TestBuyRejectsUnderpayment(t *testing.T) {
	s := newTestSale(t)
	_, err := s.Buy(context.Background(), buyerAddr, new(big.Int).Sub(testCost, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrIncorrectAmount)
	assert.Equal(t, uint64(0), s.TotalMinted())
}

func TestBuyRejectsOverpayment(t *testing.T) {
	s := newTestSale(t)
	_, err := s.Buy(context.Background(), buyerAddr, new(big.Int).Add(testCost, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrIncorrectAmount)
	assert.Equal(t, 0, s.Held().Sign())
}

func TestBuyRejectsNilAmount(t *testing.T) {
	s := newTestSale(t)
	_, err := s.Buy(context.Background(), buyerAddr, nil)
	assert.ErrorIs(t, err, ErrIncorrectAmount)
}

func TestBuyRejectsBeyondMaxSupply(t *testing.T) {
	s := newTestSale(t)
	buyN(t, s, buyerAddr, int(DefaultMaxSupply))

	_, err := s.Buy(context.Background(), buyerAddr, testCost)
	assert.ErrorIs(t, err, ErrSupplyExceeded)
	assert.Equal(t, DefaultMaxSupply, s.TotalMinted())
	assert.Equal(t, 0, s.Held().Cmp(new(big.Int).Mul(testCost, big.NewInt(int64(DefaultMaxSupply)))))
}

func TestBuyChecksAmountBeforeSupply(t *testing.T) {
	s := newTestSale(t, WithMaxSupply(1))
	buyN(t, s, buyerAddr, 1)
	_, err := s.Buy(context.Background(), buyerAddr, big.NewInt(1))
	assert.ErrorIs(t, err, ErrIncorrectAmount)
}

func TestBuyRejectsZeroAddress(t *testing.T) {
	s := newTestSale(t)
	_, err := s.Buy(context.Background(), common.Address{}, testCost)
	assert.ErrorIs(t, err, ErrMintToZeroAddress)
	assert.Equal(t, uint64(0), s.TotalMinted())
	assert.Equal(t, 0, s.Held().Sign())
	assert.Len(t, s.Events(), 1)
}

func TestBuyChecksSupplyBeforeZeroAddress(t *testing.T) {
	s := newTestSale(t, WithMaxSupply(1))
	buyN(t, s, buyerAddr, 1)
	_, err := s.Buy(context.Background(), common.Address{}, testCost)
	assert.ErrorIs(t, err, ErrSupplyExceeded)
}

func TestBuyUsesCurrentCost(t *testing.T) {
	s := newTestSale(t)
	require.NoError(t, s.SetCost(context.Background(), ownerAddr, big.NewInt(7)))

	_, err := s.Buy(context.Background(), buyerAddr, testCost)
	assert.ErrorIs(t, err, ErrIncorrectAmount)

	_, err = s.Buy(context.Background(), buyerAddr, big.NewInt(7))
	require.NoError(t, err)
}

func TestBuyByOwnerAllowed(t *testing.T) {
	s := newTestSale(t)
	id, err := s.Buy(context.Background(), ownerAddr, testCost)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(1), s.BalanceOf(ownerAddr))
}

func TestBuyConcurrentMintsUniqueIDs(t *testing.T) {
	s := newTestSale(t, WithMaxSupply(50))
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[uint64]bool)
	)
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Buy(context.Background(), buyerAddr, testCost)
			if err != nil {
				assert.ErrorIs(t, err, ErrSupplyExceeded)
				return
			}
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 50)
	for id := uint64(1); id <= 50; id++ {
		assert.True(t, ids[id], "token %d not minted", id)
	}
	assert.Equal(t, uint64(50), s.TotalMinted())
}

// ---------------------------------------------------------------------------
// Withdraw
// ---------------------------------------------------------------------------

func TestWithdrawPaysOutHeld(t *testing.T) {
	s := newTestSale(t)
	buyN(t, s, buyerAddr, 2)

	amount, err := s.Withdraw(context.Background(), ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Cmp(new(big.Int).Mul(testCost, big.NewInt(2))))
	assert.Equal(t, 0, s.Held().Sign())

	records := s.Events()
	ev, ok := records[len(records)-1].Event.(WithdrawEvent)
	require.True(t, ok)
	assert.Equal(t, ownerAddr, ev.To)
	assert.Equal(t, 0, ev.Amount.Cmp(amount))
}

func TestWithdrawRejectsNonOwner(t *testing.T) {
	s := newTestSale(t)
	buyN(t, s, buyerAddr, 1)
	_, err := s.Withdraw(context.Background(), buyerAddr)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, s.Held().Cmp(testCost))
}

func TestWithdrawRejectsEmpty(t *testing.T) {
	s := newTestSale(t)
	_, err := s.Withdraw(context.Background(), ownerAddr)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestWithdrawTwiceFails(t *testing.T) {
	s := newTestSale(t)
	buyN(t, s, buyerAddr, 1)
	_, err := s.Withdraw(context.Background(), ownerAddr)
	require.NoError(t, err)
	_, err = s.Withdraw(context.Background(), ownerAddr)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestWithdrawNonOwnerCheckedFirst(t *testing.T) {
	s := newTestSale(t)
	_, err := s.Withdraw(context.Background(), buyerAddr)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

type recordingSettler struct {
	to     common.Address
	amount *big.Int
	err    error
}

func (r *recordingSettler) Settle(_ context.Context, to common.Address, amount *big.Int) error {
	if r.err != nil {
		return r.err
	}
	r.to = to
	r.amount = new(big.Int).Set(amount)
	return nil
}

func TestWithdrawSettlesToOwner(t *testing.T) {
	st := &recordingSettler{}
	s := newTestSale(t, WithSettler(st))
	buyN(t, s, buyerAddr, 3)

	_, err := s.Withdraw(context.Background(), ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, st.to)
	assert.Equal(t, 0, st.amount.Cmp(new(big.Int).Mul(testCost, big.NewInt(3))))
}

func TestWithdrawSettleFailureRollsBack(t *testing.T) {
	st := &recordingSettler{err: errors.New("transfer rejected")}
	s := newTestSale(t, WithSettler(st))
	buyN(t, s, buyerAddr, 1)
	before := len(s.Events())

	_, err := s.Withdraw(context.Background(), ownerAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transfer rejected")
	assert.Equal(t, 0, s.Held().Cmp(testCost))
	assert.Len(t, s.Events(), before)
}

// ---------------------------------------------------------------------------
// TransferOwnership
// ---------------------------------------------------------------------------

func TestTransferOwnership(t *testing.T) {
	s := newTestSale(t)
	require.NoError(t, s.TransferOwnership(context.Background(), ownerAddr, otherAddr))
	assert.Equal(t, otherAddr, s.Owner())

	records := s.Events()
	assert.Equal(t, OwnershipTransferredEvent{PreviousOwner: ownerAddr, NewOwner: otherAddr}, records[len(records)-1].Event)

	// the previous owner lost its rights
	assert.ErrorIs(t, s.SetCost(context.Background(), ownerAddr, big.NewInt(1)), ErrUnauthorized)
	require.NoError(t, s.SetCost(context.Background(), otherAddr, big.NewInt(1)))
}

func TestTransferOwnershipRejectsZero(t *testing.T) {
	s := newTestSale(t)
	err := s.TransferOwnership(context.Background(), ownerAddr, common.Address{})
	assert.ErrorIs(t, err, ErrZeroAddress)
	assert.Equal(t, ownerAddr, s.Owner())
}

func TestTransferOwnershipRejectsNonOwner(t *testing.T) {
	s := newTestSale(t)
	err := s.TransferOwnership(context.Background(), buyerAddr, buyerAddr)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNewOwnerCanWithdraw(t *testing.T) {
	s := newTestSale(t)
	buyN(t, s, buyerAddr, 1)
	require.NoError(t, s.TransferOwnership(context.Background(), ownerAddr, otherAddr))

	amount, err := s.Withdraw(context.Background(), otherAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Cmp(testCost))
}

// ---------------------------------------------------------------------------
// TokenURI / OwnerOf / BalanceOf
// ---------------------------------------------------------------------------

func TestTokenURI(t *testing.T) {
	s := newTestSale(t)
	buyN(t, s, buyerAddr, 2)
	uri, err := s.TokenURI(2)
	require.NoError(t, err)
	assert.Equal(t, testBaseURI+"2.json", uri)
}

func TestTokenURIFollowsBaseURI(t *testing.T) {
	s := newTestSale(t)
	buyN(t, s, buyerAddr, 1)
	require.NoError(t, s.SetBaseURI(context.Background(), ownerAddr, "ar://x/"))
	uri, err := s.TokenURI(1)
	require.NoError(t, err)
	assert.Equal(t, "ar://x/1.json", uri)
}

func TestTokenURIUnminted(t *testing.T) {
	s := newTestSale(t)
	buyN(t, s, buyerAddr, 1)
	for _, id := range []uint64{0, 2, 11} {
		_, err := s.TokenURI(id)
		assert.ErrorIs(t, err, ErrTokenNotFound, "id %d", id)
	}
}

func TestOwnerOf(t *testing.T) {
	s := newTestSale(t)
	buyN(t, s, buyerAddr, 1)
	buyN(t, s, otherAddr, 1)

	got, err := s.OwnerOf(2)
	require.NoError(t, err)
	assert.Equal(t, otherAddr, got)

	_, err = s.OwnerOf(3)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestBalanceOfUnknownAddress(t *testing.T) {
	s := newTestSale(t)
	assert.Equal(t, uint64(0), s.BalanceOf(otherAddr))
}

// ---------------------------------------------------------------------------
// Subscribe
// ---------------------------------------------------------------------------

func TestSubscribeReceivesCommittedRecords(t *testing.T) {
	s := newTestSale(t)
	var got []Record
	require.NoError(t, s.Subscribe(func(r Record) { got = append(got, r) }))

	buyN(t, s, buyerAddr, 1)
	_, _ = s.Buy(context.Background(), buyerAddr, big.NewInt(1)) // rejected

	require.Len(t, got, 2)
	assert.Equal(t, []string{EventTransfer, EventBuy}, eventNames(got))
}

func TestSubscribeHandlerMayReadState(t *testing.T) {
	s := newTestSale(t)
	var minted uint64
	require.NoError(t, s.Subscribe(func(Record) { minted = s.TotalMinted() }))
	buyN(t, s, buyerAddr, 1)
	assert.Equal(t, uint64(1), minted)
}

func TestSubscribeFailures(t *testing.T) {
	s := newTestSale(t)
	var ops []string
	require.NoError(t, s.SubscribeFailures(func(op string, err error) {
		ops = append(ops, op+":"+Code(err))
	}))
	_, _ = s.Withdraw(context.Background(), buyerAddr)
	assert.Equal(t, []string{"withdraw:unauthorized"}, ops)
}

func TestWithClockStampsRecords(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSale(t, WithClock(func() time.Time { return at }))
	buyN(t, s, buyerAddr, 1)
	for _, r := range s.Events() {
		assert.Equal(t, at, r.At)
	}
}
