package config

// Config holds all nftsale CLI configuration.
type Config struct {
	DefaultNetwork string              `json:"default_network"`
	DefaultWallet  string              `json:"default_wallet"`
	NetworkMode    string              `json:"network_mode"`   // "mainnet" | "testnet"
	RPCAlgorithm   string              `json:"rpc_algorithm"`  // "fastest" | "round-robin" | "failover"
	Contract       string              `json:"contract"`       // registry name used when --contract is omitted
	WatchInterval  int                 `json:"watch_interval"` // seconds
	LocalDB        string              `json:"local_db"`
	ListenAddr     string              `json:"listen_addr"`
	PriceCurrency  string              `json:"price_currency"` // fiat shown by "info", "none" to disable
	CustomRPCs     map[string][]string `json:"custom_rpcs"`

	// internal: config dir path used for Save()
	configDir string
}

// SyncConfig is the state of "contract sync".
type SyncConfig struct {
	Source     string `json:"source"`
	LastSynced string `json:"last_synced"`
}
