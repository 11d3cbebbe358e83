package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// add / get / remove
// ---------------------------------------------------------------------------

func TestAddWatchOnlyWallet(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddWatchOnly("buyer", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"))

	w, err := m.Get("buyer")
	require.NoError(t, err)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", w.Address, "checksummed")
	assert.Equal(t, TypeWatchOnly, w.Type)
	assert.Empty(t, w.KeyRef)
	assert.NotEmpty(t, w.CreatedAt)
}

func TestAddWatchOnlyInvalidAddress(t *testing.T) {
	assert.ErrorIs(t, NewManager().AddWatchOnly("x", "0x1234"), ErrInvalidAddress)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddWatchOnly("a", testAddress))
	assert.ErrorIs(t, m.AddWatchOnly("a", testAddress), ErrWalletExists)
	_, err := m.AddWithKey("a", testKey)
	assert.ErrorIs(t, err, ErrWalletExists)
}

func TestAddWithKey(t *testing.T) {
	ks := NewMemoryKeystore()
	m := NewManager(WithKeystore(ks))

	w, err := m.AddWithKey("deployer", "0x"+testKey)
	require.NoError(t, err)
	assert.Equal(t, testAddress, w.Address)
	assert.Equal(t, TypeSigning, w.Type)

	stored, err := ks.Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, testKey, stored)
}

func TestAddWithInvalidKey(t *testing.T) {
	_, err := NewManager().AddWithKey("bad", "zz")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestRemoveWalletDeletesKey(t *testing.T) {
	ks := NewMemoryKeystore()
	m := NewManager(WithKeystore(ks))
	w, err := m.AddWithKey("deployer", testKey)
	require.NoError(t, err)

	require.NoError(t, m.Remove("deployer"))
	_, err = m.Get("deployer")
	assert.ErrorIs(t, err, ErrWalletNotFound)
	_, err = ks.Retrieve(w.KeyRef)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRemoveNonExistentWallet(t *testing.T) {
	assert.ErrorIs(t, NewManager().Remove("ghost"), ErrWalletNotFound)
}

// ---------------------------------------------------------------------------
// list / default
// ---------------------------------------------------------------------------

func TestListSorted(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddWatchOnly("zeta", testAddress))
	require.NoError(t, m.AddWatchOnly("alpha", testAddress))

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)
}

func TestFirstWalletIsDefault(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddWatchOnly("first", testAddress))
	require.NoError(t, m.AddWatchOnly("second", testAddress))

	w, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "first", w.Name)
}

func TestSetDefault(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddWatchOnly("a", testAddress))
	require.NoError(t, m.AddWatchOnly("b", testAddress))
	require.NoError(t, m.SetDefault("b"))

	w, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "b", w.Name)

	a, _ := m.Get("a")
	assert.False(t, a.IsDefault)

	assert.ErrorIs(t, m.SetDefault("ghost"), ErrWalletNotFound)
}

func TestDefaultWithoutWallets(t *testing.T) {
	_, err := NewManager().Default()
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

// ---------------------------------------------------------------------------
// Generate / ExportKey / Signer
// ---------------------------------------------------------------------------

func TestGenerateWallet(t *testing.T) {
	m := NewManager()
	w, err := m.Generate("fresh")
	require.NoError(t, err)
	assert.Equal(t, TypeSigning, w.Type)
	assert.Len(t, w.Address, 42)

	key, err := m.ExportKey("fresh")
	require.NoError(t, err)
	s, err := NewKeySigner(key)
	require.NoError(t, err)
	assert.Equal(t, w.Address, s.Address(), "exported key derives the same address")
}

func TestGenerateUniqueKeys(t *testing.T) {
	m := NewManager()
	a, err := m.Generate("a")
	require.NoError(t, err)
	b, err := m.Generate("b")
	require.NoError(t, err)
	assert.NotEqual(t, a.Address, b.Address)
}

func TestExportKeyWatchOnlyErrors(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddWatchOnly("w", testAddress))
	_, err := m.ExportKey("w")
	assert.Error(t, err)
}

func TestManagerSigner(t *testing.T) {
	m := NewManager()
	_, err := m.AddWithKey("deployer", testKey)
	require.NoError(t, err)

	s, err := m.Signer("deployer")
	require.NoError(t, err)
	assert.Equal(t, testAddress, s.Address())

	_, err = m.Signer("ghost")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

// ---------------------------------------------------------------------------
// JSONStore
// ---------------------------------------------------------------------------

func TestJSONStorePersistsAcrossManagers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallets.json")
	ks := NewMemoryKeystore()

	m := NewManager(WithStore(NewJSONStore(path)), WithKeystore(ks))
	_, err := m.AddWithKey("deployer", testKey)
	require.NoError(t, err)
	require.NoError(t, m.AddWatchOnly("buyer", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened := NewManager(WithStore(NewJSONStore(path)), WithKeystore(ks))
	list, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "buyer", list[0].Name)
	assert.Equal(t, "deployer", list[1].Name)
	assert.True(t, list[1].IsDefault)

	s, err := reopened.Signer("deployer")
	require.NoError(t, err)
	assert.Equal(t, testAddress, s.Address())
}

func TestJSONStoreLoadNoFile(t *testing.T) {
	wallets, err := NewJSONStore(filepath.Join(t.TempDir(), "none.json")).Load()
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestJSONStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewManager(WithStore(NewJSONStore(path))).List()
	assert.Error(t, err)
}
