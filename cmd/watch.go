package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream a sale's events live",
	Long: `Follow a deployed sale in a live TUI. New blocks are polled over plain
HTTP RPC, so no WebSocket endpoint is needed.

Keyboard controls:
  ↑↓ / j k   navigate rows
  o           open selected tx in explorer
  c           copy selected tx hash
  q           quit

Examples:
  nftsale watch
  nftsale watch --network base --testnet --interval 5s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := openSale(ctx, false)
		if err != nil {
			return err
		}
		interval := watchInterval
		if interval <= 0 {
			interval = time.Duration(cfg.WatchInterval) * time.Second
		}

		m := ui.NewWatchModel(s.entry.Address, s.chain.DisplayName, s.mode, currency(s.chain))
		prog := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
		go pollSale(ctx, s, interval, prog.Send)

		_, err = prog.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	},
}

// pollSale sends the sale events of every new block to send until ctx is
// done. It starts at the current head so history is not replayed.
func pollSale(ctx context.Context, s *saleSession, interval time.Duration, send func(tea.Msg)) {
	last, err := s.client.GetBlockNumber(ctx)
	if err != nil {
		send(ui.WatchStatusMsg{ErrMsg: "could not get starting block: " + trimWatchErr(err.Error())})
		return
	}
	send(ui.WatchStatusMsg{BlockNum: last})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		latest, err := s.client.GetBlockNumber(ctx)
		if err != nil {
			send(ui.WatchStatusMsg{BlockNum: last, ErrMsg: trimWatchErr(err.Error())})
			continue
		}
		if latest <= last {
			continue
		}

		send(ui.WatchStatusMsg{BlockNum: latest, Fetching: true})
		logs, err := s.decoder.Fetch(ctx, s.client, s.entry.Address, fmt.Sprintf("0x%x", last+1), fmt.Sprintf("0x%x", latest))
		if err != nil {
			logger.Warn("fetching sale events", zap.Error(err))
			send(ui.WatchStatusMsg{BlockNum: last, ErrMsg: trimWatchErr(err.Error())})
			continue
		}
		for _, l := range logs {
			send(ui.WatchEventMsg{
				Block:       l.Block,
				TxHash:      l.TxHash,
				ExplorerURL: s.txURL(l.TxHash),
				Event:       l.Event,
			})
		}
		last = latest
		send(ui.WatchStatusMsg{BlockNum: latest})
	}
}

func trimWatchErr(s string) string {
	if len(s) > 60 {
		return s[:60] + "…"
	}
	return s
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "polling interval (default: config watch_interval)")
}
