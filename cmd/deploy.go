package cmd

import (
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"github.com/Mohsinsiddi/nftsale/internal/config"
	"github.com/Mohsinsiddi/nftsale/internal/contract"
	"github.com/Mohsinsiddi/nftsale/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	deployBaseURI  string
	deployCost     string
	deployManifest string
	deployName     string
	deployYes      bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy [artifact-path]",
	Short: "Deploy the NftToken sale contract",
	Long: `Deploy the NftToken sale from a compiled Hardhat or Foundry artifact.

The artifact must contain the ABI and creation bytecode. The constructor
arguments are the metadata base URI and the initial cost. Once mined the
sale is auto-registered under --name so later commands can find it.

Settings can come from a manifest instead of flags; flags win:

  # sale.yaml
  name: nfttoken
  network: base
  mode: testnet
  artifact: artifacts/contracts/NftToken.sol/NftToken.json
  base_uri: https://ipfs.io/ipfs/<cid>/
  cost: "0.01"

Examples:
  nftsale deploy ./artifacts/contracts/NftToken.sol/NftToken.json --base-uri ipfs://cid/ --cost 0.01
  nftsale deploy --manifest sale.yaml
  nftsale deploy ./out/NftToken.sol/NftToken.json --base-uri ipfs://cid/ --cost 0.01 --network base --testnet`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var artifactPath string
		if len(args) == 1 {
			artifactPath = args[0]
		}
		name, baseURI, costStr := deployName, deployBaseURI, deployCost
		if deployManifest != "" {
			m, err := config.LoadManifest(deployManifest)
			if err != nil {
				return err
			}
			artifactPath = firstNonEmpty(artifactPath, m.Artifact)
			baseURI = firstNonEmpty(baseURI, m.BaseURI)
			costStr = firstNonEmpty(costStr, m.Cost)
			name = firstNonEmpty(name, m.Name)
			networkFlag = firstNonEmpty(networkFlag, m.Network)
			walletFlag = firstNonEmpty(walletFlag, m.Wallet)
			if m.Mode != "" && !testnet && !mainnet {
				cfg.NetworkMode = m.Mode
			}
		}
		name = firstNonEmpty(name, cfg.Contract, contract.NftTokenID)

		switch {
		case artifactPath == "":
			return fmt.Errorf("artifact path required: nftsale deploy <artifact-path> or --manifest <file>")
		case baseURI == "":
			return fmt.Errorf("--base-uri is required")
		case costStr == "":
			return fmt.Errorf("--cost is required")
		}
		cost, err := chain.ParseAmount(costStr)
		if err != nil {
			return err
		}

		art, err := contract.LoadArtifactFull(artifactPath)
		if err != nil {
			return err
		}
		if err := contract.RequireNftToken(art.ABI); err != nil {
			return err
		}

		c, err := resolveChain(networkFlag)
		if err != nil {
			return err
		}
		signer, err := resolveSigner(walletFlag)
		if err != nil {
			return err
		}
		client, err := dialChain(ctx, c)
		if err != nil {
			return err
		}
		mode := cfg.NetworkMode
		sender, err := contract.NewSender(client, art.ABI, signer, big.NewInt(c.ID(mode)))
		if err != nil {
			return err
		}

		fmt.Println(ui.KeyValueBlock("Deploy Preview", [][2]string{
			{"Contract", ui.Val(firstNonEmpty(art.ContractName, "NftToken"))},
			{"Bytecode", fmt.Sprintf("%d bytes", len(art.Bytecode))},
			{"Base URI", baseURI},
			{"Cost", ui.Ether(cost, currency(c))},
			{"Deployer", ui.Addr(signer.Address())},
			{"Network", fmt.Sprintf("%s (%s)", c.DisplayName, mode)},
			{"Register As", name},
		}))
		if !deployYes && !ui.Confirm("Deploy this contract?") {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		spin := ui.NewSpinner("Broadcasting deployment...")
		spin.Start()
		hash, err := sender.DeployNftToken(ctx, art.Bytecode, baseURI, cost)
		spin.Stop()
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Deployment sent!"))
		fmt.Println(ui.Addr("Hash: " + hash))

		spin = ui.NewSpinner("Waiting for the contract to be mined...")
		spin.Start()
		receipt, err := client.WaitForReceipt(ctx, hash, config.TxDeployTimeout)
		spin.Stop()
		if err != nil {
			return err
		}
		if receipt.ContractAddress == "" {
			return fmt.Errorf("receipt of %s has no contract address", hash)
		}

		reg := newContractRegistry()
		if err := reg.Load(); err != nil {
			return err
		}
		reg.Add(&contract.Entry{
			Name:       name,
			Network:    c.Name,
			Address:    receipt.ContractAddress,
			DeployTx:   hash,
			Block:      receipt.BlockNumber,
			Deployer:   signer.Address(),
			DeployedAt: time.Now().UTC(),
			ABI:        art.ABI,
		})
		if err := reg.Save(); err != nil {
			return err
		}
		logger.Info("sale deployed",
			zap.String("name", name),
			zap.String("network", c.Name),
			zap.String("address", receipt.ContractAddress),
			zap.Uint64("block", receipt.BlockNumber))

		fmt.Println(ui.Success(fmt.Sprintf("Sale %q deployed on %s at %s (block #%d)",
			name, c.Name, ui.Addr(receipt.ContractAddress), receipt.BlockNumber)))
		if url := c.AddressURL(mode, receipt.ContractAddress); url != "" {
			fmt.Println(ui.Meta(url))
		}
		if cfg.Contract != name {
			fmt.Println(ui.Hint("Make it the default sale with: nftsale config set contract " + name))
		}
		return nil
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	deployCmd.Flags().StringVar(&deployBaseURI, "base-uri", "", "metadata base URI, e.g. ipfs://<cid>/")
	deployCmd.Flags().StringVar(&deployCost, "cost", "", "initial cost in ether, or wei with a \"wei\" suffix")
	deployCmd.Flags().StringVar(&deployManifest, "manifest", "", "deployment manifest (YAML)")
	deployCmd.Flags().StringVar(&deployName, "name", "", "registry name (default: config contract)")
	deployCmd.Flags().BoolVarP(&deployYes, "yes", "y", false, "skip the confirmation prompt")
}
