package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/config"
	"github.com/Mohsinsiddi/nftsale/internal/contract"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	txYes    bool
	txNoWait bool
	buyValue string
	buyCount int
)

// ── buy ───────────────────────────────────────────────────────────────────────

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy (mint) a token from the sale",
	Long: `Buy the next token of the sale. The payment defaults to the current
cost; the contract rejects any other amount.

Examples:
  nftsale buy
  nftsale buy --count 3
  nftsale buy --value 0.01 --wallet alice --network base --testnet`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if buyCount < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		ctx := cmd.Context()
		s, err := openSale(ctx, true)
		if err != nil {
			return err
		}

		value, err := buyPayment(ctx, s)
		if err != nil {
			return err
		}
		for i := 0; i < buyCount; i++ {
			if buyCount > 1 {
				fmt.Println(ui.Meta(fmt.Sprintf("Buy %d of %d", i+1, buyCount)))
			}
			if err := runSaleTx(ctx, s, contract.BuyCall(value), [][2]string{
				{"Payment", ui.Ether(value, currency(s.chain))},
			}); err != nil {
				return err
			}
		}
		return nil
	},
}

func buyPayment(ctx context.Context, s *saleSession) (*big.Int, error) {
	if buyValue != "" {
		return chain.ParseAmount(buyValue)
	}
	cost, err := s.token.Cost(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cost: %w", err)
	}
	return cost, nil
}

// ── set-cost ──────────────────────────────────────────────────────────────────

var setCostCmd = &cobra.Command{
	Use:   "set-cost <amount>",
	Short: "Change the price of a token (owner only)",
	Long: `Change the price of a token. The amount is in ether ("0.02") or in
wei with a "wei" suffix ("20000000000000000wei").`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, err := chain.ParseAmount(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := openSale(ctx, true)
		if err != nil {
			return err
		}
		return runSaleTx(ctx, s, contract.SetCostCall(cost), [][2]string{
			{"New Cost", ui.Ether(cost, currency(s.chain))},
		})
	},
}

// ── set-base-uri ──────────────────────────────────────────────────────────────

var setBaseURICmd = &cobra.Command{
	Use:   "set-base-uri <uri>",
	Short: "Change the metadata base URI (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSale(ctx, true)
		if err != nil {
			return err
		}
		return runSaleTx(ctx, s, contract.SetBaseURICall(args[0]), [][2]string{
			{"New Base URI", args[0]},
		})
	},
}

// ── withdraw ──────────────────────────────────────────────────────────────────

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw the sale proceeds to the owner (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSale(ctx, true)
		if err != nil {
			return err
		}
		held, err := s.client.GetBalance(ctx, s.entry.Address)
		if err != nil {
			return fmt.Errorf("reading sale balance: %w", err)
		}
		return runSaleTx(ctx, s, contract.WithdrawCall(), [][2]string{
			{"Amount", ui.Ether(held, currency(s.chain))},
		})
	},
}

// ── transfer-ownership ────────────────────────────────────────────────────────

var transferOwnershipCmd = &cobra.Command{
	Use:   "transfer-ownership <address|wallet|ens>",
	Short: "Hand the sale to a new owner (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSale(ctx, true)
		if err != nil {
			return err
		}
		newOwner, err := s.resolveAddress(ctx, args[0])
		if err != nil {
			return err
		}
		return runSaleTx(ctx, s, contract.TransferOwnershipCall(newOwner), [][2]string{
			{"New Owner", ui.Addr(newOwner.Hex())},
		})
	},
}

// runSaleTx simulates c, asks for confirmation, sends it and reports the
// sale events of the receipt.
func runSaleTx(ctx context.Context, s *saleSession, c contract.Call, details [][2]string) error {
	pairs := [][2]string{
		{"Sale", ui.Addr(s.entry.Address)},
		{"From", ui.Addr(s.sender.From())},
		{"Call", ui.Val(c.Method)},
	}
	pairs = append(pairs, details...)
	if fees, err := s.client.SuggestFees(ctx); err == nil {
		pairs = append(pairs, [2]string{"Gas Fee", feeLine(fees)})
	} else {
		logger.Debug("fee suggestion failed", zap.Error(err))
	}
	pairs = append(pairs, [2]string{"Network", fmt.Sprintf("%s (%s)", s.chain.DisplayName, s.mode)})
	fmt.Println(ui.KeyValueBlock("Transaction Preview", pairs))

	spin := ui.NewSpinner("Simulating...")
	spin.Start()
	err := s.token.Simulate(ctx, c)
	spin.Stop()
	if err != nil {
		return err
	}

	if !txYes {
		confirm := ui.Confirm
		if c.Method == "transferOwnership" {
			confirm = ui.ConfirmDanger
		}
		if !confirm("Broadcast this transaction?") {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
	}

	spin = ui.NewSpinner("Broadcasting transaction...")
	spin.Start()
	hash, err := s.token.Send(ctx, c)
	spin.Stop()
	if err != nil {
		return err
	}
	logger.Info("transaction sent", zap.String("method", c.Method), zap.String("hash", hash))
	fmt.Println(ui.Success("Transaction sent!"))
	fmt.Println(ui.Addr("Hash: " + hash))
	if url := s.txURL(hash); url != "" {
		fmt.Println(ui.Meta(url))
	}
	if txNoWait {
		return nil
	}

	spin = ui.NewSpinner("Waiting for confirmation...")
	spin.Start()
	receipt, err := s.client.WaitForReceipt(ctx, hash, config.TxConfirmTimeout)
	spin.Stop()
	if err != nil {
		return err
	}

	fmt.Println(ui.Success(fmt.Sprintf("Confirmed in block #%d (gas used %d)", receipt.BlockNumber, receipt.GasUsed)))
	for _, ev := range s.decoder.DecodeReceipt(s.entry.Address, receipt) {
		fmt.Printf("  %s  %s\n", ui.StyleForEvent(ev.Name()), ui.EventSummary(ev, currency(s.chain)))
	}
	return nil
}

// feeLine renders EIP-1559 fee caps in gwei.
func feeLine(f *chain.Fees) string {
	line := fmt.Sprintf("max %.2f gwei · tip %.2f gwei", chain.WeiToGwei(f.GasFeeCap), chain.WeiToGwei(f.GasTipCap))
	if f.BaseFee != nil {
		line += fmt.Sprintf(" · base %.2f gwei", chain.WeiToGwei(f.BaseFee))
	}
	return line
}

func init() {
	for _, c := range []*cobra.Command{buyCmd, setCostCmd, setBaseURICmd, withdrawCmd, transferOwnershipCmd} {
		c.Flags().BoolVarP(&txYes, "yes", "y", false, "skip the confirmation prompt")
		c.Flags().BoolVar(&txNoWait, "no-wait", false, "return after broadcasting")
	}
	buyCmd.Flags().StringVar(&buyValue, "value", "", "payment in ether or wei (default: current cost)")
	buyCmd.Flags().IntVar(&buyCount, "count", 1, "number of tokens to buy, one transaction each")
}
