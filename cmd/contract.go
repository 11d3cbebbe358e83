package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/nftsale/internal/contract"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var contractABIFile string

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Manage registered sale deployments",
}

var contractImportCmd = &cobra.Command{
	Use:   "import <name> <address>",
	Short: "Register a sale deployed elsewhere",
	Long: `Register an existing NftToken sale so commands can find it by name.
Without --abi the built-in NftToken ABI is used.

Examples:
  nftsale contract import drop 0x5FbDB2315678afecb367f032d93F642f64180aa3 --network localhost
  nftsale contract import drop 0xABCD... --abi ./artifacts/contracts/NftToken.sol/NftToken.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, address := args[0], args[1]
		if !common.IsHexAddress(address) {
			return fmt.Errorf("invalid address %q", address)
		}
		c, err := resolveChain(networkFlag)
		if err != nil {
			return err
		}

		var abi []contract.ABIEntry
		if contractABIFile != "" {
			if abi, err = contract.LoadFromArtifact(contractABIFile); err != nil {
				return err
			}
			if err := contract.RequireNftToken(abi); err != nil {
				return err
			}
		}

		reg := newContractRegistry()
		if err := reg.Load(); err != nil {
			return err
		}
		reg.Add(&contract.Entry{
			Name:    name,
			Network: c.Name,
			Address: common.HexToAddress(address).Hex(),
			ABI:     abi,
		})
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Sale %q registered on %s at %s", name, c.Name, ui.Addr(address))))
		return nil
	},
}

var contractListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sales",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := newContractRegistry()
		if err := reg.Load(); err != nil {
			return err
		}
		entries := reg.All()
		if len(entries) == 0 {
			fmt.Println(ui.Info("No sales registered yet."))
			fmt.Println(ui.Hint("Deploy one with: nftsale deploy <artifact> --base-uri <uri> --cost <amount>"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Network", Width: 12},
			{Title: "Address", Width: 44},
			{Title: "Block", Width: 10},
			{Title: "ABI", Width: 8},
		})
		for _, e := range entries {
			abi := "builtin"
			if len(e.ABI) > 0 {
				abi = "artifact"
			}
			block := ""
			if e.Block > 0 {
				block = fmt.Sprintf("#%d", e.Block)
			}
			t.AddRow(ui.Row{e.Name, e.Network, e.Address, block, abi})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d sale(s) registered", len(entries))))
		return nil
	},
}

var contractRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Forget a registered sale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveChain(networkFlag)
		if err != nil {
			return err
		}
		reg := newContractRegistry()
		if err := reg.Load(); err != nil {
			return err
		}
		if err := reg.Remove(args[0], c.Name); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Sale %q on %s removed from the registry.", args[0], c.Name)))
		return nil
	},
}

var contractABICmd = &cobra.Command{
	Use:   "abi [name]",
	Short: "Show the functions and events of a sale's ABI",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		builtin, _ := contract.GetBuiltin(contract.NftTokenID)
		entries := builtin.ABI
		title := "Built-in " + builtin.Name
		if len(args) == 0 {
			defer fmt.Println(ui.Meta(builtin.Description))
		} else {
			c, err := resolveChain(networkFlag)
			if err != nil {
				return err
			}
			e, err := resolveContract(args[0], c.Name)
			if err != nil {
				return err
			}
			entries = e.Entries()
			title = fmt.Sprintf("%s on %s · %s", e.Name, c.Name, e.Address)
		}

		fmt.Printf("%s\n\n", ui.StyleTitle.Render(title))
		printABISection("Read Functions:", entries, func(e contract.ABIEntry) bool { return e.IsReadFunction() })
		printABISection("Write Functions:", entries, func(e contract.ABIEntry) bool { return e.IsWriteFunction() })
		printABISection("Events:", entries, func(e contract.ABIEntry) bool { return e.Type == "event" })
		return nil
	},
}

func printABISection(title string, entries []contract.ABIEntry, keep func(contract.ABIEntry) bool) {
	fmt.Println(ui.StyleHeader.Render(title))
	n := 0
	for _, e := range entries {
		if !keep(e) {
			continue
		}
		n++
		id := e.Selector()
		tag := "0x" + hex.EncodeToString(id[:])
		if e.Type == "event" {
			topic := e.Topic()
			tag = ui.TruncateAddr("0x" + hex.EncodeToString(topic[:]))
		}
		line := fmt.Sprintf("  %s  %s(%s)", ui.Meta(fmt.Sprintf("%-13s", tag)), ui.Val(e.Name), formatParams(e.Inputs))
		if out := formatOutputs(e.Outputs); out != "" {
			line += ui.Meta("  →  " + out)
		}
		if e.IsPayable() {
			line += "  " + ui.Warn("payable")
		}
		fmt.Println(line)
	}
	if n == 0 {
		fmt.Println(ui.Meta("  (none)"))
	}
	fmt.Println()
}

// formatParams returns a comma-separated string of "type name" pairs.
func formatParams(params []contract.ABIParam) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Type
		if p.Indexed {
			parts[i] += " indexed"
		}
		if p.Name != "" {
			parts[i] += " " + p.Name
		}
	}
	return strings.Join(parts, ", ")
}

// formatOutputs returns a comma-separated list of output types.
func formatOutputs(params []contract.ABIParam) string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = p.Type
	}
	return strings.Join(types, ", ")
}

func init() {
	contractImportCmd.Flags().StringVar(&contractABIFile, "abi", "", "ABI JSON or Hardhat/Foundry artifact (default: built-in)")
	contractCmd.AddCommand(contractImportCmd, contractListCmd, contractRemoveCmd, contractABICmd)
}
