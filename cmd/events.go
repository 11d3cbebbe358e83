package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/spf13/cobra"
)

// defaultEventWindow is how far back events looks for sales with no known
// deploy block.
const defaultEventWindow = 1000

var (
	eventsFrom  string
	eventsTo    string
	eventsCount int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the decoded events of a deployed sale",
	Long: `Fetch and decode the sale's event logs: Buy, Transfer, Withdraw,
SetCost, SetBaseURI and OwnershipTransferred.

By default the range starts at the deploy block of a registered sale, or
the last 1000 blocks otherwise. Use --from and --to for a custom range.

Examples:
  nftsale events
  nftsale events --from 19000000 --to latest
  nftsale events --contract 0x5FbDB2315678afecb367f032d93F642f64180aa3 --count 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSale(ctx, false)
		if err != nil {
			return err
		}

		fromBlock := normalizeBlockParam(eventsFrom)
		toBlock := normalizeBlockParam(eventsTo)
		if fromBlock == "" {
			start := s.entry.Block
			if start == 0 {
				latest, err := s.client.GetBlockNumber(ctx)
				if err != nil {
					return fmt.Errorf("getting block number: %w", err)
				}
				if latest > defaultEventWindow {
					start = latest - defaultEventWindow
				}
			}
			fromBlock = fmt.Sprintf("0x%x", start)
		}
		if toBlock == "" {
			toBlock = "latest"
		}

		spin := ui.NewSpinner(fmt.Sprintf("Fetching sale events on %s...", s.chain.DisplayName))
		spin.Start()
		logs, err := s.decoder.Fetch(ctx, s.client, s.entry.Address, fromBlock, toBlock)
		spin.Stop()
		if err != nil {
			return fmt.Errorf("querying events: %w", err)
		}
		if len(logs) == 0 {
			fmt.Println(ui.Info(fmt.Sprintf("No sale events for %s in %s → %s", ui.TruncateAddr(s.entry.Address), fromBlock, toBlock)))
			return nil
		}

		found := len(logs)
		if eventsCount > 0 && len(logs) > eventsCount {
			logs = logs[len(logs)-eventsCount:]
		}

		fmt.Println(ui.KeyValueBlock(
			fmt.Sprintf("Events · %s (%s)", s.chain.DisplayName, s.mode),
			[][2]string{
				{"Sale", ui.Addr(s.entry.Address)},
				{"Found", fmt.Sprintf("%d events (showing %d)", found, len(logs))},
				{"Block Range", fmt.Sprintf("%s → %s", fromBlock, toBlock)},
			}))

		t := ui.NewTable([]ui.Column{
			{Title: "BLOCK", Width: 10},
			{Title: "EVENT", Width: 20},
			{Title: "TX", Width: 14},
			{Title: "DETAILS", Width: 60},
		})
		for _, l := range logs {
			t.AddRow(ui.Row{
				fmt.Sprintf("#%d", l.Block),
				l.Event.Name(),
				ui.TruncateAddr(l.TxHash),
				ui.EventSummary(l.Event, currency(s.chain)),
			})
		}
		fmt.Println(t.Render())
		return nil
	},
}

// normalizeBlockParam converts a block flag to an RPC block parameter.
// Accepts hex ("0x1a"), decimal ("100"), tags ("latest") or "".
func normalizeBlockParam(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "latest" || s == "earliest" || s == "pending" || strings.HasPrefix(s, "0x") {
		return s
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return s
	}
	return fmt.Sprintf("0x%x", n)
}

func init() {
	eventsCmd.Flags().StringVar(&eventsFrom, "from", "", "start block (hex or decimal, default: deploy block or latest-1000)")
	eventsCmd.Flags().StringVar(&eventsTo, "to", "", "end block (default: latest)")
	eventsCmd.Flags().IntVar(&eventsCount, "count", 20, "max events to display, newest kept (0 = all)")
}
