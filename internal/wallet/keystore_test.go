package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// first Hardhat account
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// ---------------------------------------------------------------------------
// normaliseHexKey
// ---------------------------------------------------------------------------

func TestNormaliseHexKey(t *testing.T) {
	cases := map[string]string{
		"0xabc123":            "abc123",
		"0Xabc123":            "abc123",
		"abc123":              "abc123",
		"  0xabc  ":           "abc",
		"0x":                  "",
		"":                    "",
		"0x" + testKey:        testKey,
		"\n" + testKey + "\n": testKey,
	}
	for in, want := range cases {
		assert.Equal(t, want, normaliseHexKey(in), "input %q", in)
	}
}

// ---------------------------------------------------------------------------
// Keystore
// ---------------------------------------------------------------------------

func TestKeystoreStoreRetrieve(t *testing.T) {
	ks := NewMemoryKeystore()

	ref, err := ks.Store("deployer", "0x"+testKey)
	require.NoError(t, err)
	assert.Equal(t, "nftsale.deployer", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, testKey, got, "stored without the 0x prefix")
}

func TestKeystoreRetrieveMissing(t *testing.T) {
	_, err := NewMemoryKeystore().Retrieve("nftsale.nobody")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeystoreDelete(t *testing.T) {
	ks := NewMemoryKeystore()
	ref, err := ks.Store("deployer", testKey)
	require.NoError(t, err)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	assert.NoError(t, ks.Delete(ref), "deleting twice is fine")
}

func TestOpenKeystoreFileBackend(t *testing.T) {
	t.Setenv(EnvKeyringPassword, "test-password")
	ks, err := OpenKeystore(t.TempDir())
	if err != nil {
		t.Skipf("no keyring backend available: %v", err)
	}
	assert.NotNil(t, ks)
}
