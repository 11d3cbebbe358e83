package config

import "time"

// Timeouts used by the commands.
const (
	RPCSelectTimeout = 10 * time.Second // probing endpoints before picking one
	TxConfirmTimeout = 3 * time.Minute  // waiting for a sale call to be mined
	TxDeployTimeout  = 5 * time.Minute  // waiting for a deployment to be mined
)

// Environment variables.
const (
	EnvConfigDir  = "NFTSALE_CONFIG_DIR"
	EnvPrivateKey = "PRIVATE_KEY"
	EnvRPCURL     = "RPC_URL"
)
