package contract

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownEvent is returned for logs that are not sale events.
var ErrUnknownEvent = errors.New("unknown event")

// LogDecoder turns contract logs into sale events.
type LogDecoder struct {
	abi abi.ABI
}

// NewLogDecoder creates a decoder for the events declared in entries.
func NewLogDecoder(entries []ABIEntry) (*LogDecoder, error) {
	parsed, err := Bind(entries)
	if err != nil {
		return nil, err
	}
	return &LogDecoder{abi: parsed}, nil
}

// Topics returns the topic0 of every sale event, for eth_getLogs filters.
func (d *LogDecoder) Topics() []string {
	var out []string
	for _, name := range saleEvents {
		if ev, ok := d.abi.Events[name]; ok {
			out = append(out, ev.ID.Hex())
		}
	}
	return out
}

var saleEvents = []string{
	sale.EventSetBaseURI,
	sale.EventSetCost,
	sale.EventBuy,
	sale.EventWithdraw,
	sale.EventTransfer,
	sale.EventOwnershipTransferred,
}

// Decode decodes one log.
func (d *LogDecoder) Decode(l chain.LogEntry) (sale.Event, error) {
	if len(l.Topics) == 0 {
		return nil, ErrUnknownEvent
	}
	ev, err := d.abi.EventByID(common.HexToHash(l.Topics[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: topic %s", ErrUnknownEvent, l.Topics[0])
	}
	args, err := d.args(ev, l)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ev.Name, err)
	}

	switch ev.Name {
	case sale.EventSetBaseURI:
		return decodeInto(args, func(a argReader) sale.Event {
			return sale.SetBaseURIEvent{NewURI: a.str(0)}
		})
	case sale.EventSetCost:
		return decodeInto(args, func(a argReader) sale.Event {
			return sale.SetCostEvent{NewCost: a.big(0)}
		})
	case sale.EventBuy:
		return decodeInto(args, func(a argReader) sale.Event {
			return sale.BuyEvent{Buyer: a.addr(0), TokenID: a.big(1).Uint64(), AmountPaid: a.big(2)}
		})
	case sale.EventWithdraw:
		return decodeInto(args, func(a argReader) sale.Event {
			return sale.WithdrawEvent{To: a.addr(0), Amount: a.big(1)}
		})
	case sale.EventTransfer:
		return decodeInto(args, func(a argReader) sale.Event {
			return sale.TransferEvent{From: a.addr(0), To: a.addr(1), TokenID: a.big(2).Uint64()}
		})
	case sale.EventOwnershipTransferred:
		return decodeInto(args, func(a argReader) sale.Event {
			return sale.OwnershipTransferredEvent{PreviousOwner: a.addr(0), NewOwner: a.addr(1)}
		})
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name)
}

// args returns the event arguments in declaration order, taking indexed
// ones from the topics and the rest from the data.
func (d *LogDecoder) args(ev *abi.Event, l chain.LogEntry) ([]any, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(l.Data, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid log data: %w", err)
	}
	plain, err := ev.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(ev.Inputs))
	topics := l.Topics[1:]
	for _, in := range ev.Inputs {
		if !in.Indexed {
			out = append(out, plain[0])
			plain = plain[1:]
			continue
		}
		if len(topics) == 0 {
			return nil, fmt.Errorf("missing topic for %s", in.Name)
		}
		word := common.HexToHash(topics[0])
		topics = topics[1:]
		switch in.Type.T {
		case abi.AddressTy:
			out = append(out, common.BytesToAddress(word[12:]))
		case abi.UintTy, abi.IntTy:
			out = append(out, new(big.Int).SetBytes(word[:]))
		default:
			// dynamic indexed values are only available as their hash
			out = append(out, word)
		}
	}
	return out, nil
}

// argReader reads positional event arguments; a type mismatch panics and is
// turned into an error by decodeInto.
type argReader []any

func (a argReader) str(i int) string          { return a[i].(string) }
func (a argReader) addr(i int) common.Address { return a[i].(common.Address) }
func (a argReader) big(i int) *big.Int        { return a[i].(*big.Int) }

func decodeInto(args []any, build func(argReader) sale.Event) (ev sale.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			ev, err = nil, fmt.Errorf("unexpected event layout: %v", r)
		}
	}()
	return build(argReader(args)), nil
}

// DecodedLog is a sale event read from the chain.
type DecodedLog struct {
	Block    uint64
	TxHash   string
	LogIndex string
	Event    sale.Event
}

// Fetch reads and decodes the sale events of address in [fromBlock, toBlock].
func (d *LogDecoder) Fetch(ctx context.Context, client *chain.EVMClient, address, fromBlock, toBlock string) ([]DecodedLog, error) {
	logs, err := client.GetLogs(ctx, address, d.Topics(), fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	out := make([]DecodedLog, 0, len(logs))
	for _, l := range logs {
		ev, err := d.Decode(l)
		if errors.Is(err, ErrUnknownEvent) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, DecodedLog{Block: l.Block(), TxHash: l.TxHash, LogIndex: l.LogIndex, Event: ev})
	}
	return out, nil
}

// DecodeReceipt returns the sale events a mined transaction emitted. Logs of
// other contracts or unknown events are skipped.
func (d *LogDecoder) DecodeReceipt(address string, r *chain.TxReceipt) []sale.Event {
	var out []sale.Event
	for _, l := range r.Logs {
		if !strings.EqualFold(l.Address, address) {
			continue
		}
		if ev, err := d.Decode(l); err == nil {
			out = append(out, ev)
		}
	}
	return out
}
