package sale

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event names, matching the contract's event declarations.
const (
	EventSetBaseURI           = "SetBaseURI"
	EventSetCost              = "SetCost"
	EventBuy                  = "Buy"
	EventWithdraw             = "Withdraw"
	EventTransfer             = "Transfer"
	EventOwnershipTransferred = "OwnershipTransferred"
)

// Event is a notification emitted by a successful sale operation.
type Event interface {
	Name() string
}

// SetBaseURIEvent is emitted by SetBaseURI.
type SetBaseURIEvent struct {
	NewURI string `json:"newURI"`
}

// SetCostEvent is emitted by SetCost.
type SetCostEvent struct {
	NewCost *big.Int `json:"newCost"`
}

// BuyEvent is emitted for every minted token.
type BuyEvent struct {
	Buyer      common.Address `json:"buyer"`
	TokenID    uint64         `json:"tokenId"`
	AmountPaid *big.Int       `json:"amountPaid"`
}

// WithdrawEvent is emitted when the owner collects the sale proceeds.
type WithdrawEvent struct {
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

// TransferEvent is the ERC721 transfer emitted on mint (From is the zero address).
type TransferEvent struct {
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	TokenID uint64         `json:"tokenId"`
}

// OwnershipTransferredEvent is emitted on construction and ownership changes.
type OwnershipTransferredEvent struct {
	PreviousOwner common.Address `json:"previousOwner"`
	NewOwner      common.Address `json:"newOwner"`
}

func (SetBaseURIEvent) Name() string           { return EventSetBaseURI }
func (SetCostEvent) Name() string              { return EventSetCost }
func (BuyEvent) Name() string                  { return EventBuy }
func (WithdrawEvent) Name() string             { return EventWithdraw }
func (TransferEvent) Name() string             { return EventTransfer }
func (OwnershipTransferredEvent) Name() string { return EventOwnershipTransferred }

// Record is a committed event together with its position in the sale log.
type Record struct {
	Seq    uint64    `json:"seq"`
	CallID string    `json:"callId"`
	At     time.Time `json:"at"`
	Event  Event     `json:"event"`
}

// MarshalJSON adds the event name next to the payload.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		Name string `json:"name"`
	}{plain(r), r.Event.Name()})
}

// DecodeEvent rebuilds an event from its name and JSON payload, as written
// by a persistent store.
func DecodeEvent(name string, payload []byte) (Event, error) {
	switch name {
	case EventSetBaseURI:
		return decodeAs[SetBaseURIEvent](payload)
	case EventSetCost:
		return decodeAs[SetCostEvent](payload)
	case EventBuy:
		return decodeAs[BuyEvent](payload)
	case EventWithdraw:
		return decodeAs[WithdrawEvent](payload)
	case EventTransfer:
		return decodeAs[TransferEvent](payload)
	case EventOwnershipTransferred:
		return decodeAs[OwnershipTransferredEvent](payload)
	}
	return nil, fmt.Errorf("unknown event %q", name)
}

func decodeAs[T Event](payload []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", ev.Name(), err)
	}
	return ev, nil
}
