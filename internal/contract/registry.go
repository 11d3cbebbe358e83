package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrContractNotFound is returned when a deployment is not registered.
var ErrContractNotFound = errors.New("contract not found")

// Entry is a registered sale deployment.
type Entry struct {
	Name       string     `json:"name"`
	Network    string     `json:"network"`
	Address    string     `json:"address"`
	DeployTx   string     `json:"deploy_tx,omitempty"`
	Block      uint64     `json:"block,omitempty"`
	Deployer   string     `json:"deployer,omitempty"`
	DeployedAt time.Time  `json:"deployed_at,omitempty"`
	ABI        []ABIEntry `json:"abi,omitempty"` // nil means the nfttoken built-in
}

// Entries returns the entry's ABI, falling back to the built-in.
func (e *Entry) Entries() []ABIEntry {
	if len(e.ABI) > 0 {
		return e.ABI
	}
	return GetBuiltinABI(NftTokenID)
}

// Registry stores deployments in a JSON file, keyed by name and network.
type Registry struct {
	path      string
	contracts map[string]*Entry
}

// NewRegistry creates a Registry backed by path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path, contracts: make(map[string]*Entry)}
}

// Path returns the file backing the registry.
func (r *Registry) Path() string { return r.path }

// Load reads the registry. A missing file is an empty registry.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing %s: %w", r.path, err)
	}
	for i := range entries {
		r.Add(&entries[i])
	}
	return nil
}

// Save writes the registry, sorted by key.
func (r *Registry) Save() error {
	entries := make([]Entry, 0, len(r.contracts))
	for _, e := range r.All() {
		entries = append(entries, *e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o600)
}

// Add adds or replaces a deployment.
func (r *Registry) Add(e *Entry) {
	r.contracts[key(e.Name, e.Network)] = e
}

// Get returns the deployment called name on network.
func (r *Registry) Get(name, network string) (*Entry, error) {
	e, ok := r.contracts[key(name, network)]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrContractNotFound, name, network)
	}
	return e, nil
}

// All returns every deployment sorted by network then name.
func (r *Registry) All() []*Entry {
	out := make([]*Entry, 0, len(r.contracts))
	for _, e := range r.contracts {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Network != out[j].Network {
			return out[i].Network < out[j].Network
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Remove deletes a deployment.
func (r *Registry) Remove(name, network string) error {
	k := key(name, network)
	if _, ok := r.contracts[k]; !ok {
		return fmt.Errorf("%w: %s on %s", ErrContractNotFound, name, network)
	}
	delete(r.contracts, k)
	return nil
}

func key(name, network string) string {
	return strings.ToLower(name) + "@" + strings.ToLower(network)
}
