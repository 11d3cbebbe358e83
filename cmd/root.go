package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mohsinsiddi/nftsale/internal/config"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/nftsale/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir       string
	cfg          *config.Config
	logger       = zap.NewNop()
	verbose      bool
	testnet      bool
	mainnet      bool
	networkFlag  string
	walletFlag   string
	contractFlag string
	envFile      string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "nftsale",
	Short: "Deploy and run an NFT token sale",
	Long: `nftsale deploys the NftToken sale contract and drives it from the terminal.

  Buy tokens, adjust the price and metadata URI, withdraw the proceeds and
  follow the sale's events on any supported EVM network, or run the same
  sale locally against a SQLite-backed engine with "nftsale local".

Global flags --testnet and --mainnet override the configured network mode
for a single invocation. Persist with: nftsale config set network_mode <mode>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if err := config.LoadEnv(envFiles()...); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.NetworkMode = "testnet"
		}
		if mainnet {
			cfg.NetworkMode = "mainnet"
		}

		logger, err = newLogger(verbose)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.Banner())
		return cmd.Help()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

// newLogger builds the operational logger. Without --verbose only warnings
// and errors are written, as JSON on stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return zc.Build()
}

func envFiles() []string {
	if envFile == "" {
		return nil
	}
	return []string{envFile}
}

func init() {
	if envDir := os.Getenv(config.EnvConfigDir); envDir != "" {
		cfgDir = envDir
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.nftsale)")
	pf.StringVar(&envFile, "env-file", "", "dotenv file to load (default: .env when present)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	pf.BoolVar(&testnet, "testnet", false, "use testnet instead of mainnet")
	pf.BoolVar(&mainnet, "mainnet", false, "use mainnet instead of testnet")
	pf.StringVar(&networkFlag, "network", "", "chain (default: config)")
	pf.StringVar(&walletFlag, "wallet", "", "wallet name (default: config)")
	pf.StringVar(&contractFlag, "contract", "", "registered sale name or address (default: config)")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.AddCommand(
		deployCmd,
		buyCmd,
		setCostCmd,
		setBaseURICmd,
		withdrawCmd,
		transferOwnershipCmd,
		infoCmd,
		tokenURICmd,
		ownerOfCmd,
		balanceOfCmd,
		eventsCmd,
		watchCmd,
		localCmd,
		contractCmd,
		walletCmd,
		networkCmd,
		rpcCmd,
		configCmd,
	)
}
