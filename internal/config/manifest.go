package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest describes a sale deployment, e.g. sale.yaml:
//
//	name: nfttoken
//	network: base
//	mode: testnet
//	artifact: artifacts/contracts/NftToken.sol/NftToken.json
//	base_uri: https://ipfs.io/ipfs/<cid>/
//	cost: "0.01"
type Manifest struct {
	Name     string `yaml:"name"`
	Network  string `yaml:"network"`
	Mode     string `yaml:"mode"`
	Wallet   string `yaml:"wallet"`
	Artifact string `yaml:"artifact"`
	BaseURI  string `yaml:"base_uri"`
	Cost     string `yaml:"cost"` // ether, or wei with a "wei" suffix
}

// LoadManifest reads a deployment manifest. Unknown fields are rejected and
// a relative artifact path is resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	if m.Artifact != "" && !filepath.IsAbs(m.Artifact) {
		m.Artifact = filepath.Join(filepath.Dir(path), m.Artifact)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.BaseURI == "" {
		return fmt.Errorf("base_uri is required")
	}
	if m.Cost == "" {
		return fmt.Errorf("cost is required")
	}
	if m.Mode != "" && m.Mode != "mainnet" && m.Mode != "testnet" {
		return fmt.Errorf("mode must be mainnet or testnet, got %q", m.Mode)
	}
	return nil
}
