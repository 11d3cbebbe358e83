package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	defaultNetwork    = "localhost"
	defaultMode       = "testnet"
	defaultAlgorithm  = "fastest"
	defaultContract   = "nfttoken"
	defaultInterval   = 5
	defaultListenAddr = "127.0.0.1:8080"
	defaultCurrency   = "usd"

	configFile    = "config.json"
	walletsFile   = "wallets.json"
	contractsFile = "contracts.json"
	localDBFile   = "sale.db"
	syncFile      = "sync.json"
)

// Load reads config from dir, or returns defaults when there is no file yet.
// An empty dir means $NFTSALE_CONFIG_DIR, then ~/.nftsale.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".nftsale")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is where wallet metadata lives.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// ContractsPath is where deployments are registered.
func (c *Config) ContractsPath() string {
	return filepath.Join(c.configDir, contractsFile)
}

// LocalDBPath returns the SQLite file of the local sale. Relative paths
// are resolved against the config dir.
func (c *Config) LocalDBPath() string {
	switch {
	case c.LocalDB == "":
		return filepath.Join(c.configDir, localDBFile)
	case filepath.IsAbs(c.LocalDB):
		return c.LocalDB
	}
	return filepath.Join(c.configDir, c.LocalDB)
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chain, url string) error {
	rpcs := c.CustomRPCs[chain]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[chain]
}

// Keys lists the settings accepted by Set, in display order.
func Keys() []string {
	return []string{
		"default_network", "default_wallet", "network_mode", "rpc_algorithm",
		"contract", "watch_interval", "local_db", "listen_addr", "price_currency",
	}
}

// Get returns the value of a setting as text.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "default_network":
		return c.DefaultNetwork, nil
	case "default_wallet":
		return c.DefaultWallet, nil
	case "network_mode":
		return c.NetworkMode, nil
	case "rpc_algorithm":
		return c.RPCAlgorithm, nil
	case "contract":
		return c.Contract, nil
	case "watch_interval":
		return strconv.Itoa(c.WatchInterval), nil
	case "local_db":
		return c.LocalDB, nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "price_currency":
		return c.PriceCurrency, nil
	}
	return "", unknownKey(key)
}

// Set changes a setting from text, validating enumerations and numbers.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "default_network":
		c.DefaultNetwork = strings.ToLower(value)
	case "default_wallet":
		c.DefaultWallet = value
	case "network_mode":
		if value != "mainnet" && value != "testnet" {
			return fmt.Errorf("network_mode must be mainnet or testnet, got %q", value)
		}
		c.NetworkMode = value
	case "rpc_algorithm":
		if !slices.Contains([]string{"fastest", "round-robin", "failover"}, value) {
			return fmt.Errorf("rpc_algorithm must be fastest, round-robin or failover, got %q", value)
		}
		c.RPCAlgorithm = value
	case "contract":
		c.Contract = value
	case "watch_interval":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("watch_interval must be a positive number of seconds, got %q", value)
		}
		c.WatchInterval = n
	case "local_db":
		c.LocalDB = value
	case "listen_addr":
		c.ListenAddr = value
	case "price_currency":
		c.PriceCurrency = strings.ToLower(value)
	default:
		return unknownKey(key)
	}
	return nil
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
}

// LoadSync reads sync.json. A missing file is an empty SyncConfig.
func (c *Config) LoadSync() (*SyncConfig, error) {
	return loadJSON[SyncConfig](filepath.Join(c.configDir, syncFile))
}

// SaveSync writes sync.json.
func (c *Config) SaveSync(sc *SyncConfig) error {
	return saveJSON(filepath.Join(c.configDir, syncFile), sc)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		DefaultNetwork: defaultNetwork,
		NetworkMode:    defaultMode,
		RPCAlgorithm:   defaultAlgorithm,
		Contract:       defaultContract,
		WatchInterval:  defaultInterval,
		ListenAddr:     defaultListenAddr,
		PriceCurrency:  defaultCurrency,
		CustomRPCs:     make(map[string][]string),
		configDir:      dir,
	}
}

func loadJSON[T any](path string) (*T, error) {
	v := new(T)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return v, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
