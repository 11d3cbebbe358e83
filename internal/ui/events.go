package ui

import (
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/nftsale/internal/sale"
)

// EventSummary describes a sale event on one line.
func EventSummary(ev sale.Event, currency string) string {
	switch e := ev.(type) {
	case sale.BuyEvent:
		return fmt.Sprintf("token #%d bought by %s for %s", e.TokenID, TruncateAddr(e.Buyer.Hex()), Ether(e.AmountPaid, currency))
	case sale.TransferEvent:
		return fmt.Sprintf("token #%d %s → %s", e.TokenID, TruncateAddr(e.From.Hex()), TruncateAddr(e.To.Hex()))
	case sale.WithdrawEvent:
		return fmt.Sprintf("%s withdrawn to %s", Ether(e.Amount, currency), TruncateAddr(e.To.Hex()))
	case sale.SetCostEvent:
		return "cost set to " + Ether(e.NewCost, currency)
	case sale.SetBaseURIEvent:
		return "base URI set to " + e.NewURI
	case sale.OwnershipTransferredEvent:
		return fmt.Sprintf("owner %s → %s", TruncateAddr(e.PreviousOwner.Hex()), TruncateAddr(e.NewOwner.Hex()))
	case nil:
		return ""
	}
	return ev.Name()
}

// StyleForEvent colours an event name: buys green, owner actions yellow.
func StyleForEvent(name string) string {
	switch name {
	case sale.EventBuy, sale.EventTransfer:
		return StyleSuccess.Render(name)
	case sale.EventWithdraw, sale.EventSetCost, sale.EventSetBaseURI, sale.EventOwnershipTransferred:
		return StyleWarning.Render(name)
	}
	return name
}

// RecordsTable renders the local sale log.
func RecordsTable(records []sale.Record, currency string) string {
	t := NewTable([]Column{
		{Title: "SEQ", Width: 5},
		{Title: "EVENT", Width: 20},
		{Title: "DETAILS", Width: 56},
		{Title: "AT", Width: 20},
	})
	for _, r := range records {
		t.AddRow(Row{
			strconv.FormatUint(r.Seq, 10),
			r.Event.Name(),
			EventSummary(r.Event, currency),
			r.At.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	return t.Render()
}
