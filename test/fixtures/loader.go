package fixtures

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// ArtifactPath returns the path of a compiled-contract fixture, e.g.
// "NftToken.json" (Hardhat artifact) or "INftToken.json" (no bytecode).
func ArtifactPath(t *testing.T, filename string) string {
	t.Helper()
	path := filepath.Join(fixturesDir(), "artifacts", filename)
	_, err := os.Stat(path)
	require.NoError(t, err, "missing fixture artifact: %s", filename)
	return path
}

// LoadArtifact returns the raw bytes of a fixture artifact.
func LoadArtifact(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(ArtifactPath(t, filename))
	require.NoError(t, err, "failed to load fixture artifact: %s", filename)
	return data
}
