package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/nftsale/internal/api"
	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/Mohsinsiddi/nftsale/internal/store"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/Mohsinsiddi/nftsale/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// localCurrency labels amounts of the local engine.
const localCurrency = "ETH"

var (
	localDB        string
	localAs        string
	localOwner     string
	localBaseURI   string
	localCost      string
	localMaxSupply uint64
	localValue     string
	localCount     int
	localAfter     uint64
	localLimit     int
	localListen    string
)

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run the sale locally on a SQLite-backed engine",
	Long: `Run the NftToken sale without a chain. State and the event log live in
a SQLite database (default: <config>/sale.db) and every call is
all-or-nothing, exactly like a contract call.

The caller of a call is --as (an address or wallet name), or the default
wallet.

Examples:
  nftsale local init --base-uri https://x/ --cost 0.01
  nftsale local buy --as alice
  nftsale local set-cost 0.02
  nftsale local events
  nftsale local serve --listen 127.0.0.1:8080`,
}

var localInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a local sale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if localBaseURI == "" {
			return fmt.Errorf("--base-uri is required")
		}
		cost, err := chain.ParseAmount(localCost)
		if err != nil {
			return err
		}
		ownerRef := firstNonEmpty(localOwner, localAs)
		owner, err := localCaller(ownerRef)
		if err != nil {
			return err
		}

		ts, err := sale.New(owner, localBaseURI, cost,
			sale.WithMaxSupply(localMaxSupply),
			sale.WithLogger(logger))
		if err != nil {
			return err
		}

		st, err := openLocalStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Init(cmd.Context(), ts.Snapshot(), ts.Events()); err != nil {
			if errors.Is(err, store.ErrSaleExists) {
				return fmt.Errorf("%w at %s — remove it or pass --db <path>", err, localDBPath())
			}
			return err
		}

		fmt.Println(ui.Success("Local sale created in " + localDBPath()))
		printLocalInfo(ts)
		return nil
	},
}

var localInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the local sale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocalSale(cmd.Context(), func(ts *sale.TokenSale, _ *store.Store) error {
			printLocalInfo(ts)
			return nil
		})
	},
}

var localBuyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy (mint) tokens from the local sale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if localCount < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		caller, err := localCaller(localAs)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return withLocalSale(ctx, func(ts *sale.TokenSale, _ *store.Store) error {
			value := ts.Cost()
			if localValue != "" {
				if value, err = chain.ParseAmount(localValue); err != nil {
					return err
				}
			}
			return printCommitted(ts, func() error {
				for i := 0; i < localCount; i++ {
					if _, err := ts.Buy(ctx, caller, value); err != nil {
						return err
					}
				}
				return nil
			})
		})
	},
}

var localSetCostCmd = &cobra.Command{
	Use:   "set-cost <amount>",
	Short: "Change the price of a token (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, err := chain.ParseAmount(args[0])
		if err != nil {
			return err
		}
		return runLocalCall(cmd.Context(), func(ctx context.Context, ts *sale.TokenSale, caller common.Address) error {
			return ts.SetCost(ctx, caller, cost)
		})
	},
}

var localSetBaseURICmd = &cobra.Command{
	Use:   "set-base-uri <uri>",
	Short: "Change the metadata base URI (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocalCall(cmd.Context(), func(ctx context.Context, ts *sale.TokenSale, caller common.Address) error {
			return ts.SetBaseURI(ctx, caller, args[0])
		})
	},
}

var localWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw the collected funds (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocalCall(cmd.Context(), func(ctx context.Context, ts *sale.TokenSale, caller common.Address) error {
			_, err := ts.Withdraw(ctx, caller)
			return err
		})
	},
}

var localTransferOwnershipCmd = &cobra.Command{
	Use:   "transfer-ownership <address|wallet>",
	Short: "Hand the local sale to a new owner (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newOwner, err := resolveAddress(args[0])
		if err != nil {
			return err
		}
		return runLocalCall(cmd.Context(), func(ctx context.Context, ts *sale.TokenSale, caller common.Address) error {
			return ts.TransferOwnership(ctx, caller, newOwner)
		})
	},
}

var localTokenURICmd = &cobra.Command{
	Use:   "token-uri <id>",
	Short: "Show the metadata URI of a minted token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTokenID(args[0])
		if err != nil {
			return err
		}
		return withLocalSale(cmd.Context(), func(ts *sale.TokenSale, _ *store.Store) error {
			uri, err := ts.TokenURI(id)
			if err != nil {
				return err
			}
			fmt.Println(uri)
			return nil
		})
	},
}

var localOwnerOfCmd = &cobra.Command{
	Use:   "owner-of <id>",
	Short: "Show the owner of a minted token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTokenID(args[0])
		if err != nil {
			return err
		}
		return withLocalSale(cmd.Context(), func(ts *sale.TokenSale, _ *store.Store) error {
			owner, err := ts.OwnerOf(id)
			if err != nil {
				return err
			}
			fmt.Println(owner.Hex())
			return nil
		})
	},
}

var localBalanceOfCmd = &cobra.Command{
	Use:   "balance-of <address|wallet>",
	Short: "Show how many tokens an address holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := resolveAddress(args[0])
		if err != nil {
			return err
		}
		return withLocalSale(cmd.Context(), func(ts *sale.TokenSale, _ *store.Store) error {
			fmt.Println(ts.BalanceOf(addr))
			return nil
		})
	},
}

var localEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the local sale's event log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openLocalStore()
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.Events(cmd.Context(), localAfter, localLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println(ui.Info(fmt.Sprintf("No events after #%d.", localAfter)))
			return nil
		}
		fmt.Println(ui.RecordsTable(records, localCurrency))
		return nil
	},
}

var localServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local sale over HTTP",
	Long: `Serve the local sale as a development node. Mutating requests name
their caller in the X-Caller header. Prometheus metrics are on /metrics.

Endpoints:
  GET  /sale                 GET  /tokens/:id
  GET  /balances/:address    GET  /events?after=N&limit=N
  POST /buy                  POST /admin/cost
  POST /admin/base-uri       POST /admin/withdraw
  POST /admin/owner          GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withLocalSale(ctx, func(ts *sale.TokenSale, st *store.Store) error {
			srv, err := api.NewServer(ts, api.WithEventSource(st), api.WithLogger(logger))
			if err != nil {
				return err
			}
			addr := firstNonEmpty(localListen, cfg.ListenAddr)
			fmt.Println(ui.Success("Serving local sale on http://" + addr))
			fmt.Println(ui.Hint("Press Ctrl+C to stop."))
			return srv.Serve(ctx, addr)
		})
	},
}

// ── helpers ───────────────────────────────────────────────────────────────────

func localDBPath() string {
	if localDB != "" {
		return localDB
	}
	return cfg.LocalDBPath()
}

func openLocalStore() (*store.Store, error) {
	return store.Open(localDBPath(), store.WithLogger(logger))
}

// withLocalSale opens the store, restores the sale and runs fn.
func withLocalSale(ctx context.Context, fn func(*sale.TokenSale, *store.Store) error) error {
	st, err := openLocalStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ts, ok, err := st.Sale(ctx, sale.WithLogger(logger))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no local sale in %s — create one with `nftsale local init`", localDBPath())
	}
	return fn(ts, st)
}

// runLocalCall runs one mutating call as --as and prints its events.
func runLocalCall(ctx context.Context, call func(context.Context, *sale.TokenSale, common.Address) error) error {
	caller, err := localCaller(localAs)
	if err != nil {
		return err
	}
	return withLocalSale(ctx, func(ts *sale.TokenSale, _ *store.Store) error {
		return printCommitted(ts, func() error { return call(ctx, ts, caller) })
	})
}

// printCommitted runs fn and prints every record it commits, even when a
// later step of fn fails.
func printCommitted(ts *sale.TokenSale, fn func() error) error {
	var committed []sale.Record
	if err := ts.Subscribe(func(r sale.Record) { committed = append(committed, r) }); err != nil {
		return err
	}
	err := fn()
	for _, r := range committed {
		fmt.Printf("  %s  %s  %s\n",
			ui.Meta(fmt.Sprintf("#%d", r.Seq)),
			ui.StyleForEvent(r.Event.Name()),
			ui.EventSummary(r.Event, localCurrency))
	}
	if err != nil {
		return err
	}
	if len(committed) > 0 {
		logger.Debug("local call committed", zap.String("call_id", committed[0].CallID))
		fmt.Println(ui.Success("Committed."))
	}
	return nil
}

// localCaller resolves --as: an address, a wallet name, or the default
// wallet when empty.
func localCaller(ref string) (common.Address, error) {
	if ref != "" {
		return resolveAddress(ref)
	}
	mgr := walletMetadata()
	name := firstNonEmpty(walletFlag, cfg.DefaultWallet)
	var (
		w   *wallet.Wallet
		err error
	)
	if name != "" {
		w, err = mgr.Get(name)
	} else {
		w, err = mgr.Default()
	}
	if err != nil {
		return common.Address{}, fmt.Errorf("no caller — pass --as <address|wallet> or add a wallet: %w", err)
	}
	return common.HexToAddress(w.Address), nil
}

func printLocalInfo(ts *sale.TokenSale) {
	fmt.Println(ui.KeyValueBlock("Local Sale", [][2]string{
		{"Owner", ui.Addr(ts.Owner().Hex())},
		{"Cost", ui.Ether(ts.Cost(), localCurrency)},
		{"Minted", fmt.Sprintf("%d / %d", ts.TotalMinted(), ts.MaxSupply())},
		{"Base URI", ts.BaseURI()},
		{"Unwithdrawn", ui.Ether(ts.Held(), localCurrency)},
		{"Database", localDBPath()},
	}))
}

func init() {
	localCmd.PersistentFlags().StringVar(&localDB, "db", "", "SQLite database (default: config local_db)")
	localCmd.PersistentFlags().StringVar(&localAs, "as", "", "caller address or wallet name (default: default wallet)")

	localInitCmd.Flags().StringVar(&localOwner, "owner", "", "sale owner (default: --as)")
	localInitCmd.Flags().StringVar(&localBaseURI, "base-uri", "", "metadata base URI")
	localInitCmd.Flags().StringVar(&localCost, "cost", "0.01", "cost in ether, or wei with a \"wei\" suffix")
	localInitCmd.Flags().Uint64Var(&localMaxSupply, "max-supply", sale.DefaultMaxSupply, "supply cap")

	localBuyCmd.Flags().StringVar(&localValue, "value", "", "payment in ether or wei (default: current cost)")
	localBuyCmd.Flags().IntVar(&localCount, "count", 1, "number of tokens to buy, one call each")

	localEventsCmd.Flags().Uint64Var(&localAfter, "after", 0, "only records after this sequence number")
	localEventsCmd.Flags().IntVar(&localLimit, "limit", 100, "max records to list")

	localServeCmd.Flags().StringVar(&localListen, "listen", "", "listen address (default: config listen_addr)")

	localCmd.AddCommand(
		localInitCmd,
		localInfoCmd,
		localBuyCmd,
		localSetCostCmd,
		localSetBaseURICmd,
		localWithdrawCmd,
		localTransferOwnershipCmd,
		localTokenURICmd,
		localOwnerOfCmd,
		localBalanceOfCmd,
		localEventsCmd,
		localServeCmd,
	)
}
