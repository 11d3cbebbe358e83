package cmd

import (
	"fmt"
	"slices"

	"github.com/Mohsinsiddi/nftsale/internal/rpc"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/spf13/cobra"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <chain> <url>",
	Short: "Add a custom RPC URL for a chain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveChain(args[0])
		if err != nil {
			return err
		}
		if err := cfg.AddRPC(c.Name, args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(c.Name), args[1])))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <chain> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC for %s: %s", args[0], args[1])))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list [chain]",
	Short: "Probe the RPCs of a chain and show which one would be used",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := networkFlag
		if len(args) == 1 {
			name = args[0]
		}
		c, err := resolveChain(name)
		if err != nil {
			return err
		}
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}
		urls := slices.Concat(cfg.GetRPCs(c.Name), c.RPCs(cfg.NetworkMode))

		spin := ui.NewSpinner(fmt.Sprintf("Probing %d %s RPC(s)...", len(urls), c.DisplayName))
		spin.Start()
		endpoints := rpc.Probe(cmd.Context(), urls)
		spin.Stop()

		picked, pickErr := rpc.NewPicker(algo).Pick(endpoints)

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 44},
			{Title: "Latency", Width: 10},
			{Title: "Block #", Width: 12},
			{Title: "Status", Width: 8},
			{Title: "Pick", Width: 4},
		})
		for _, e := range endpoints {
			latency, block, status := "—", "—", "down"
			if e.Healthy {
				latency = fmt.Sprintf("%dms", e.Latency.Milliseconds())
				block = fmt.Sprintf("%d", e.BlockNumber)
				status = "healthy"
			}
			pick := ""
			if picked != nil && picked.URL == e.URL {
				pick = "✓"
			}
			t.AddRow(ui.Row{e.URL, latency, block, status, pick})
		}
		fmt.Printf("%s\n", ui.StyleTitle.Render(fmt.Sprintf("RPCs for %s (%s) · %s", c.DisplayName, cfg.NetworkMode, algo)))
		fmt.Println(t.Render())
		if pickErr != nil {
			fmt.Println(ui.Warn(pickErr.Error()))
		}
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd)
}
