package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subcommand(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func TestRootRegistersSaleCommands(t *testing.T) {
	for _, name := range []string{
		"deploy", "buy", "set-cost", "set-base-uri", "withdraw", "transfer-ownership",
		"info", "token-uri", "owner-of", "balance-of", "events", "watch",
		"local", "contract", "wallet", "network", "rpc", "config",
	} {
		assert.NotNil(t, subcommand(rootCmd, name), "missing command %q", name)
	}
}

func TestLocalRegistersSubcommands(t *testing.T) {
	for _, name := range []string{
		"init", "info", "buy", "set-cost", "set-base-uri", "withdraw", "transfer-ownership",
		"token-uri", "owner-of", "balance-of", "events", "serve",
	} {
		assert.NotNil(t, subcommand(localCmd, name), "missing local command %q", name)
	}
}

func TestContractSubcommands(t *testing.T) {
	for _, name := range []string{"import", "list", "remove", "abi", "sync"} {
		assert.NotNil(t, subcommand(contractCmd, name), "missing contract command %q", name)
	}
	assert.Equal(t, "30s", contractSyncCmd.Flags().Lookup("interval").DefValue)
}

func TestGlobalFlags(t *testing.T) {
	for _, name := range []string{"config", "env-file", "verbose", "testnet", "mainnet", "network", "wallet", "contract"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestDeployFlags(t *testing.T) {
	flags := deployCmd.Flags()
	for _, name := range []string{"base-uri", "cost", "manifest", "name", "yes"} {
		f := flags.Lookup(name)
		require.NotNil(t, f, "missing --%s", name)
	}
	assert.Equal(t, "string", flags.Lookup("cost").Value.Type())
	assert.Contains(t, deployCmd.Long, "auto-registered")
}

func TestTxCommandsShareConfirmFlags(t *testing.T) {
	for _, c := range []*cobra.Command{buyCmd, setCostCmd, setBaseURICmd, withdrawCmd, transferOwnershipCmd} {
		assert.NotNil(t, c.Flags().Lookup("yes"), c.Name())
		assert.NotNil(t, c.Flags().Lookup("no-wait"), c.Name())
	}
	assert.NotNil(t, buyCmd.Flags().Lookup("count"))
	assert.Equal(t, "1", buyCmd.Flags().Lookup("count").DefValue)
}

func TestArgValidation(t *testing.T) {
	assert.Error(t, setCostCmd.Args(setCostCmd, nil))
	assert.NoError(t, setCostCmd.Args(setCostCmd, []string{"0.02"}))
	assert.Error(t, buyCmd.Args(buyCmd, []string{"extra"}))
	assert.Error(t, tokenURICmd.Args(tokenURICmd, nil))
	assert.NoError(t, deployCmd.Args(deployCmd, nil))
	assert.Error(t, deployCmd.Args(deployCmd, []string{"a", "b"}))
}
