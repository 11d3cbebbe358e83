package cmd

import (
	"fmt"
	"time"

	csync "github.com/Mohsinsiddi/nftsale/internal/sync"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/spf13/cobra"
)

var (
	syncSource   string
	syncWatch    bool
	syncInterval time.Duration
)

var contractSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import sale deployments from a remote manifest",
	Long: `Import the sales listed in a deployments.json manifest into the
registry. Entries whose ABI is not an NftToken sale are skipped.

  {"contracts": {"drop": {"base": {"address": "0x…", "abi_url": "https://…/NftToken.json"}}}}

Examples:
  nftsale contract sync --source https://example.com/deployments.json
  nftsale contract sync
  nftsale contract sync --watch --interval 1m`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer := csync.New(cfg, newContractRegistry(), csync.WithLogger(logger))
		if syncSource != "" {
			if err := syncer.SetSource(syncSource); err != nil {
				return err
			}
			fmt.Println(ui.Success("Sync source set to: " + syncSource))
		}

		if syncWatch {
			fmt.Println(ui.Meta(fmt.Sprintf("Watching for changes every %s. Press Ctrl+C to stop.", syncInterval)))
			return syncer.Watch(cmd.Context(), syncInterval, printSyncResult)
		}

		spin := ui.NewSpinner("Syncing sales...")
		spin.Start()
		res, err := syncer.Run(cmd.Context())
		spin.Stop()
		if err != nil {
			return err
		}
		printSyncResult(res)
		return nil
	},
}

func printSyncResult(res *csync.Result) {
	fmt.Println(ui.Success(fmt.Sprintf("%d sale(s) imported.", res.Imported)))
	for _, s := range res.Skipped {
		fmt.Println(ui.Warn("skipped " + s))
	}
}

func init() {
	contractSyncCmd.Flags().StringVar(&syncSource, "source", "", "set the manifest URL before syncing")
	contractSyncCmd.Flags().BoolVar(&syncWatch, "watch", false, "keep syncing on an interval")
	contractSyncCmd.Flags().DurationVar(&syncInterval, "interval", 30*time.Second, "interval of --watch")
	contractCmd.AddCommand(contractSyncCmd)
}
