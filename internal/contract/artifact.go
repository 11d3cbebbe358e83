package contract

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	ContractName string
	ABI          []ABIEntry
	Bytecode     []byte
}

type artifactJSON struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// LoadFromArtifact loads an ABI from either a raw ABI array or a
// Hardhat/Foundry artifact object with an "abi" key.
func LoadFromArtifact(path string) ([]ABIEntry, error) {
	data, err := readNonEmpty(path)
	if err != nil {
		return nil, err
	}
	return parseABIOrArtifact(data, path)
}

// ABIFromJSON is LoadFromArtifact for a document already in memory; source
// names it in errors.
func ABIFromJSON(data []byte, source string) ([]ABIEntry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("ABI is empty: %s", source)
	}
	return parseABIOrArtifact(data, source)
}

func parseABIOrArtifact(data []byte, source string) ([]ABIEntry, error) {
	var art artifactJSON
	if json.Unmarshal(data, &art) == nil && isArray(art.ABI) {
		data = art.ABI
	}
	entries, err := ParseABI(data)
	if err != nil {
		return nil, err
	}
	if err := validateABI(entries, source); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadArtifactFull loads the ABI and creation bytecode of a Hardhat or
// Foundry artifact. Raw ABI files and bytecode-less artifacts (interfaces,
// abstract contracts) are rejected.
func LoadArtifactFull(path string) (*Artifact, error) {
	data, err := readNonEmpty(path)
	if err != nil {
		return nil, err
	}

	var art artifactJSON
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("invalid artifact JSON: %w", err)
	}
	if !isArray(art.ABI) {
		return nil, fmt.Errorf("artifact has no \"abi\" array (raw ABI files cannot be deployed): %s", path)
	}
	entries, err := ParseABI(art.ABI)
	if err != nil {
		return nil, fmt.Errorf("parsing artifact ABI: %w", err)
	}
	if err := validateABI(entries, path); err != nil {
		return nil, err
	}

	if len(art.Bytecode) == 0 {
		return nil, fmt.Errorf("artifact has no bytecode: %s", path)
	}
	bcHex, err := extractBytecodeHex(art.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("extracting bytecode from artifact: %w", err)
	}
	bcHex = strings.TrimPrefix(bcHex, "0x")
	if bcHex == "" {
		return nil, fmt.Errorf("artifact bytecode is empty (interface or abstract contract): %s", path)
	}
	bytecode, err := hex.DecodeString(bcHex)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode hex in artifact: %w", err)
	}

	return &Artifact{ContractName: art.ContractName, ABI: entries, Bytecode: bytecode}, nil
}

func readNonEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read artifact file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("artifact file is empty: %s", path)
	}
	return data, nil
}

func isArray(raw json.RawMessage) bool {
	return len(raw) > 1 && raw[0] == '['
}

// extractBytecodeHex accepts both artifact layouts:
//
//	Hardhat: "bytecode": "0x6080..."
//	Foundry: "bytecode": {"object": "0x6080..."}
func extractBytecodeHex(raw json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str), nil
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Object != "" {
		return strings.TrimSpace(obj.Object), nil
	}
	return "", fmt.Errorf("bytecode field is neither a hex string nor a {\"object\":\"0x...\"} object")
}

// validateABI checks that the ABI has at least one function, event or
// constructor.
func validateABI(entries []ABIEntry, path string) error {
	if len(entries) == 0 {
		return fmt.Errorf("ABI is empty: %s", path)
	}
	for _, e := range entries {
		if e.Type == "function" || e.Type == "event" || e.Type == "constructor" {
			return nil
		}
	}
	return fmt.Errorf("ABI has %d entries but none are functions or events: %s", len(entries), path)
}

// RequireNftToken checks that entries expose the sale interface the CLI
// drives.
func RequireNftToken(entries []ABIEntry) error {
	var missing []string
	for _, want := range nftTokenABI {
		if want.Type != "function" || want.Name == "name" || want.Name == "symbol" {
			continue
		}
		if Find(entries, "function", want.Name) == nil {
			missing = append(missing, want.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("ABI is not an NftToken sale, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}
