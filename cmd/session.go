package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/config"
	"github.com/Mohsinsiddi/nftsale/internal/contract"
	"github.com/Mohsinsiddi/nftsale/internal/ens"
	"github.com/Mohsinsiddi/nftsale/internal/rpc"
	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/Mohsinsiddi/nftsale/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// saleSession is a deployed sale bound to a live node.
type saleSession struct {
	chain   *chain.Chain
	mode    string
	client  *chain.EVMClient
	entry   *contract.Entry
	token   *contract.Token
	decoder *contract.LogDecoder
	sender  *contract.Sender // nil unless opened for writing
}

// openSale resolves --network and --contract, picks an RPC and binds the
// sale. With sign set it also loads the signing wallet.
func openSale(ctx context.Context, sign bool) (*saleSession, error) {
	c, err := resolveChain(networkFlag)
	if err != nil {
		return nil, err
	}
	entry, err := resolveContract(contractFlag, c.Name)
	if err != nil {
		return nil, err
	}
	client, err := dialChain(ctx, c)
	if err != nil {
		return nil, err
	}

	entries := entry.Entries()
	caller, err := contract.NewCaller(client, entries)
	if err != nil {
		return nil, err
	}
	decoder, err := contract.NewLogDecoder(entries)
	if err != nil {
		return nil, err
	}

	s := &saleSession{
		chain:   c,
		mode:    cfg.NetworkMode,
		client:  client,
		entry:   entry,
		decoder: decoder,
	}
	if sign {
		signer, err := resolveSigner(walletFlag)
		if err != nil {
			return nil, err
		}
		s.sender, err = contract.NewSender(client, entries, signer, big.NewInt(c.ID(s.mode)))
		if err != nil {
			return nil, err
		}
	}
	s.token = contract.NewToken(entry.Address, caller, s.sender)
	logger.Debug("sale bound",
		zap.String("network", c.Name),
		zap.String("mode", s.mode),
		zap.String("rpc", client.URL()),
		zap.String("address", entry.Address))
	return s, nil
}

func (s *saleSession) txURL(hash string) string {
	return s.chain.TxURL(s.mode, hash)
}

// resolveAddress is the package-level resolveAddress plus ENS names on
// chains that have ENS.
func (s *saleSession) resolveAddress(ctx context.Context, ref string) (common.Address, error) {
	if !ens.IsName(ref) {
		return resolveAddress(ref)
	}
	if !ens.Supported(s.chain.Name) {
		return common.Address{}, fmt.Errorf("ENS names are only resolved on ethereum, not %s", s.chain.Name)
	}
	addr, err := ens.Resolve(ctx, s.client, ref)
	if err != nil {
		return common.Address{}, err
	}
	logger.Debug("ens resolved", zap.String("name", ref), zap.String("address", addr.Hex()))
	return addr, nil
}

// resolveChain returns the chain named by flag or the configured default.
func resolveChain(flag string) (*chain.Chain, error) {
	name := flag
	if name == "" {
		name = cfg.DefaultNetwork
	}
	c, err := chain.NewRegistry().GetByName(name)
	if err != nil {
		return nil, fmt.Errorf("unknown chain %q — run `nftsale network list` to see all chains", name)
	}
	return c, nil
}

// resolveContract accepts a registered name or a bare address. An address
// that is not registered uses the built-in NftToken ABI.
func resolveContract(flag, network string) (*contract.Entry, error) {
	ref := flag
	if ref == "" {
		ref = cfg.Contract
	}
	if common.IsHexAddress(ref) {
		return &contract.Entry{Name: ref, Network: network, Address: common.HexToAddress(ref).Hex()}, nil
	}

	reg := newContractRegistry()
	if err := reg.Load(); err != nil {
		return nil, err
	}
	e, err := reg.Get(ref, network)
	if errors.Is(err, contract.ErrContractNotFound) {
		return nil, fmt.Errorf("no sale %q on %s — deploy one with `nftsale deploy` or pass --contract <address>", ref, network)
	}
	return e, err
}

// dialChain picks an RPC endpoint for c using the configured algorithm.
func dialChain(ctx context.Context, c *chain.Chain) (*chain.EVMClient, error) {
	url, err := pickRPC(ctx, c, cfg.NetworkMode)
	if err != nil {
		return nil, err
	}
	return chain.NewEVMClient(url), nil
}

func pickRPC(ctx context.Context, c *chain.Chain, mode string) (string, error) {
	rpcs := slices.Concat(cfg.GetRPCs(c.Name), c.RPCs(mode))
	if len(rpcs) == 0 {
		return "", fmt.Errorf("no RPCs configured for %s (%s) — add one with `nftsale rpc add %s <url>`", c.Name, mode, c.Name)
	}
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	return rpc.Best(ctx, rpcs, algo)
}

// resolveSigner loads the signing key of the named wallet, the default
// wallet, or PRIVATE_KEY when no wallet is configured.
func resolveSigner(name string) (contract.TxSigner, error) {
	if name == "" {
		name = cfg.DefaultWallet
	}
	if name == "" {
		w, err := walletMetadata().Default()
		switch {
		case err == nil:
			name = w.Name
		case os.Getenv(config.EnvPrivateKey) != "":
			return wallet.NewKeySigner(os.Getenv(config.EnvPrivateKey))
		default:
			return nil, fmt.Errorf("no wallet specified — use --wallet <name>, set %s, or add one:\n  nftsale wallet add deployer --key <private-key>", config.EnvPrivateKey)
		}
	}
	mgr, err := newWalletManager()
	if err != nil {
		return nil, err
	}
	return mgr.Signer(name)
}

func newWalletManager() (*wallet.Manager, error) {
	ks, err := wallet.OpenKeystore(cfg.Dir())
	if err != nil {
		return nil, err
	}
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(ks),
	), nil
}

func newContractRegistry() *contract.Registry {
	return contract.NewRegistry(cfg.ContractsPath())
}

// resolveAddress accepts a hex address or a wallet name.
func resolveAddress(s string) (common.Address, error) {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	w, err := walletMetadata().Get(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%q is neither an address nor a wallet", s)
	}
	return common.HexToAddress(w.Address), nil
}

func parseTokenID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token id %q", s)
	}
	return id, nil
}

func currency(c *chain.Chain) string {
	if c == nil {
		return "ETH"
	}
	return c.NativeCurrency
}

// errorLine renders a command error, with a hint for sale reverts.
func errorLine(err error) string {
	line := ui.Err(err.Error())
	switch {
	case errors.Is(err, sale.ErrUnauthorized):
		line += "\n" + ui.Hint("Only the sale owner can do this — check --wallet.")
	case errors.Is(err, sale.ErrIncorrectAmount):
		line += "\n" + ui.Hint("Pay exactly the current cost — see `nftsale info`.")
	case errors.Is(err, sale.ErrSupplyExceeded):
		line += "\n" + ui.Hint("Every token of this sale has been minted.")
	case errors.Is(err, sale.ErrNothingToWithdraw):
		line += "\n" + ui.Hint("The sale holds no funds yet.")
	}
	return line
}
