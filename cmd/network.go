package cmd

import (
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Choose the network sales are deployed to",
}

// salesPerNetwork counts registered deployments by network slug.
func salesPerNetwork() (map[string]int, error) {
	reg := newContractRegistry()
	if err := reg.Load(); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, e := range reg.All() {
		counts[e.Network]++
	}
	return counts, nil
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List networks and the sales registered on each",
	RunE: func(cmd *cobra.Command, args []string) error {
		sales, err := salesPerNetwork()
		if err != nil {
			return err
		}
		mode := cfg.NetworkMode

		t := ui.NewTable([]ui.Column{
			{Title: "", Width: 2},
			{Title: "Network", Width: 12},
			{Title: "Chain ID", Width: 10},
			{Title: "Currency", Width: 8},
			{Title: "RPCs", Width: 9},
			{Title: "Explorer", Width: 32},
			{Title: "Sales", Width: 5},
		})
		for _, c := range chain.NewRegistry().All() {
			marker := ""
			if c.Name == cfg.DefaultNetwork {
				marker = "▸"
			}
			rpcs := strconv.Itoa(len(c.RPCs(mode)))
			if n := len(cfg.GetRPCs(c.Name)); n > 0 {
				rpcs += fmt.Sprintf(" +%d", n)
			}
			explorer := c.Explorer(mode)
			if explorer == "" {
				explorer = "—"
			}
			t.AddRow(ui.Row{
				marker,
				c.Name,
				strconv.FormatInt(c.ID(mode), 10),
				c.NativeCurrency,
				rpcs,
				explorer,
				strconv.Itoa(sales[c.Name]),
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("mode: %s · \"+n\" are custom RPCs", mode)))
		return nil
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use <chain>",
	Short: "Set the default network",
	Long: `Set the network every sale command targets unless --network is given.
With --testnet or --mainnet the mode is saved too.

Examples:
  nftsale network use base
  nftsale network use base --testnet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveChain(args[0])
		if err != nil {
			return err
		}
		cfg.DefaultNetwork = c.Name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Sales now target %s (%s, chain %d)",
			ui.ChainName(c.Name), cfg.NetworkMode, c.ID(cfg.NetworkMode))))

		sales, err := salesPerNetwork()
		if err != nil {
			return err
		}
		if sales[c.Name] == 0 {
			fmt.Println(ui.Hint("No sale registered here yet. Deploy one with: nftsale deploy <artifact>"))
		}
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkUseCmd)
}
