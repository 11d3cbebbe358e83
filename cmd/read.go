package cmd

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/ens"
	"github.com/Mohsinsiddi/nftsale/internal/price"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// lookupTimeout bounds the optional price and ENS lookups of "info".
const lookupTimeout = 5 * time.Second

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the state of a deployed sale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSale(ctx, false)
		if err != nil {
			return err
		}

		spin := ui.NewSpinner(fmt.Sprintf("Reading sale on %s...", s.chain.DisplayName))
		spin.Start()
		info, err := s.token.Info(ctx)
		spin.Stop()
		if err != nil {
			return err
		}

		cur := currency(s.chain)
		pairs := [][2]string{
			{"Address", ui.Addr(info.Address)},
		}
		if info.Name != "" {
			pairs = append(pairs, [2]string{"Collection", fmt.Sprintf("%s (%s)", info.Name, info.Symbol)})
		}
		owner := ui.Addr(info.Owner.Hex())
		if name := ownerENSName(ctx, s, info.Owner); name != "" {
			owner += " " + ui.Meta("("+name+")")
		}
		pairs = append(pairs,
			[2]string{"Owner", owner},
			[2]string{"Cost", ui.Ether(info.Cost, cur) + fiatSuffix(ctx, s, info.Cost)},
			[2]string{"Max Supply", fmt.Sprintf("%d", info.MaxSupply)},
			[2]string{"Base URI", info.BaseURI},
			[2]string{"Unwithdrawn", ui.Ether(info.Balance, cur) + fiatSuffix(ctx, s, info.Balance)},
			[2]string{"Network", fmt.Sprintf("%s (%s)", s.chain.DisplayName, s.mode)},
		)
		if s.entry.DeployTx != "" {
			pairs = append(pairs, [2]string{"Deploy Tx", ui.Addr(s.entry.DeployTx)})
		}
		fmt.Println(ui.KeyValueBlock("Sale · "+s.entry.Name, pairs))
		if url := s.chain.AddressURL(s.mode, info.Address); url != "" {
			fmt.Println(ui.Meta(url))
		}
		return nil
	},
}

var tokenURICmd = &cobra.Command{
	Use:   "token-uri <id>",
	Short: "Show the metadata URI of a minted token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTokenID(args[0])
		if err != nil {
			return err
		}
		s, err := openSale(cmd.Context(), false)
		if err != nil {
			return err
		}
		uri, err := s.token.TokenURI(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Println(uri)
		return nil
	},
}

var ownerOfCmd = &cobra.Command{
	Use:   "owner-of <id>",
	Short: "Show the owner of a minted token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTokenID(args[0])
		if err != nil {
			return err
		}
		s, err := openSale(cmd.Context(), false)
		if err != nil {
			return err
		}
		owner, err := s.token.OwnerOf(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Println(owner.Hex())
		return nil
	},
}

var balanceOfCmd = &cobra.Command{
	Use:   "balance-of <address|wallet|ens>",
	Short: "Show how many tokens an address holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSale(cmd.Context(), false)
		if err != nil {
			return err
		}
		addr, err := s.resolveAddress(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		n, err := s.token.BalanceOf(cmd.Context(), addr)
		if err != nil {
			return err
		}
		fmt.Println(n.String())
		return nil
	},
}

// fiatSuffix returns " ≈ 25.00 USD" for mainnet amounts, or "" when prices
// are disabled or unavailable.
func fiatSuffix(ctx context.Context, s *saleSession, wei *big.Int) string {
	if cfg.PriceCurrency == "" || cfg.PriceCurrency == "none" || s.mode != chain.ModeMainnet {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	f := price.NewFetcher(cfg.PriceCurrency)
	v, err := f.Value(ctx, s.chain.Name, wei)
	if err != nil {
		logger.Debug("price lookup failed", zap.Error(err))
		return ""
	}
	return ui.Meta(" ≈ " + f.Format(v))
}

// ownerENSName returns the primary ENS name of owner on ethereum, or "".
func ownerENSName(ctx context.Context, s *saleSession, owner common.Address) string {
	if !ens.Supported(s.chain.Name) {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	name, err := ens.ReverseLookup(ctx, s.client, owner)
	if err != nil {
		logger.Debug("ens reverse lookup failed", zap.Error(err))
		return ""
	}
	return name
}
