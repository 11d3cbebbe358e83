// deploy: non-interactive NftToken deployment for CI and local nodes. Reads
// PRIVATE_KEY and RPC_URL from the environment (or .env), deploys the
// artifact and prints the contract address.
//
// Run from the module root:
//
//	go run ./scripts/deploy -artifact artifacts/contracts/NftToken.sol/NftToken.json \
//	    -base-uri ipfs://<cid>/ -cost 0.01
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/config"
	"github.com/Mohsinsiddi/nftsale/internal/contract"
	"github.com/Mohsinsiddi/nftsale/internal/wallet"
	"go.uber.org/zap"
)

// ── config ────────────────────────────────────────────────────────────────────

var (
	artifactPath = flag.String("artifact", "", "Hardhat or Foundry artifact of NftToken")
	baseURI      = flag.String("base-uri", "", "metadata base URI")
	costFlag     = flag.String("cost", "0.01", "initial cost in ether, or wei with a \"wei\" suffix")
	envFile      = flag.String("env-file", "", "dotenv file (default: .env)")
)

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("deployment failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	if *artifactPath == "" || *baseURI == "" {
		return fmt.Errorf("-artifact and -base-uri are required")
	}

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	if err := config.LoadEnv(files...); err != nil {
		return err
	}
	env, err := config.ReadDeployEnv()
	if err != nil {
		return err
	}

	cost, err := chain.ParseAmount(*costFlag)
	if err != nil {
		return err
	}
	art, err := contract.LoadArtifactFull(*artifactPath)
	if err != nil {
		return err
	}
	if err := contract.RequireNftToken(art.ABI); err != nil {
		return err
	}

	signer, err := wallet.NewKeySigner(env.PrivateKey)
	if err != nil {
		return err
	}
	client := chain.NewEVMClient(env.RPCURL)
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}
	sender, err := contract.NewSender(client, art.ABI, signer, chainID)
	if err != nil {
		return err
	}

	logger.Info("deploying",
		zap.String("contract", art.ContractName),
		zap.String("deployer", signer.Address()),
		zap.String("chain_id", chainID.String()),
		zap.String("base_uri", *baseURI),
		zap.String("cost", chain.FormatEther(cost)))

	hash, err := sender.DeployNftToken(ctx, art.Bytecode, *baseURI, cost)
	if err != nil {
		return err
	}
	logger.Info("transaction sent", zap.String("hash", hash))

	receipt, err := client.WaitForReceipt(ctx, hash, config.TxDeployTimeout)
	if err != nil {
		return err
	}
	if receipt.Status != 1 {
		return fmt.Errorf("deployment %s reverted", hash)
	}

	logger.Info("deployed",
		zap.String("address", receipt.ContractAddress),
		zap.Uint64("block", receipt.BlockNumber),
		zap.Uint64("gas_used", receipt.GasUsed))
	fmt.Println(receipt.ContractAddress)
	return nil
}
