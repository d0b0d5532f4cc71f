package keys_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlab-dev/chainlab/internal/keys"
)

func TestAddWatchOnlyAccount(t *testing.T) {
	mgr := keys.NewManager(keys.WithInMemoryStore())
	kp, err := keys.Generate()
	require.NoError(t, err)

	err = mgr.Add("watcher", &keys.Account{
		Name:    "watcher",
		Address: kp.Address(),
		Type:    keys.TypeWatchOnly,
	})
	require.NoError(t, err)

	a, err := mgr.Get("watcher")
	require.NoError(t, err)
	assert.Equal(t, "watcher", a.Name)
	assert.Equal(t, keys.TypeWatchOnly, a.Type)

	// Watch-only accounts have no key.
	_, err = mgr.Signer("watcher")
	assert.Error(t, err)
}

func TestAddDuplicateAccountErrors(t *testing.T) {
	mgr := keys.NewManager(keys.WithInMemoryStore())

	a := &keys.Account{Name: "dup", Address: "X", Type: keys.TypeWatchOnly}
	require.NoError(t, mgr.Add("dup", a))
	assert.ErrorIs(t, mgr.Add("dup", a), keys.ErrAccountExists)
}

func TestNewSigningAccount(t *testing.T) {
	mgr := keys.NewManager(keys.WithInMemoryStore())

	a, err := mgr.New("signer")
	require.NoError(t, err)
	assert.Equal(t, keys.TypeSigning, a.Type)
	assert.True(t, keys.IsValidAddress(a.Address))

	kp, err := mgr.Signer("signer")
	require.NoError(t, err)
	assert.Equal(t, a.Address, kp.Address())
}

func TestAddWithSeedDerivesSameAddress(t *testing.T) {
	mgr := keys.NewManager(keys.WithInMemoryStore())
	kp, err := keys.Generate()
	require.NoError(t, err)

	a, err := mgr.AddWithSeed("restored", kp.SeedHex())
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), a.Address)
}

func TestInvalidSeedRejected(t *testing.T) {
	mgr := keys.NewManager(keys.WithInMemoryStore())
	_, err := mgr.AddWithSeed("bad", "not-a-valid-seed")
	assert.ErrorIs(t, err, keys.ErrInvalidSeed)
}

func TestListAndRemove(t *testing.T) {
	mgr := keys.NewManager(keys.WithInMemoryStore())
	for _, name := range []string{"a", "b", "c"} {
		_, err := mgr.New(name)
		require.NoError(t, err)
	}
	assert.Len(t, mgr.List(), 3)

	require.NoError(t, mgr.Remove("b"))
	_, err := mgr.Get("b")
	assert.ErrorIs(t, err, keys.ErrAccountNotFound)

	assert.ErrorIs(t, mgr.Remove("nope"), keys.ErrAccountNotFound)
}

func TestDefaultAccount(t *testing.T) {
	mgr := keys.NewManager(keys.WithInMemoryStore())

	// Single account is the implicit default.
	_, err := mgr.New("only")
	require.NoError(t, err)
	require.NotNil(t, mgr.Default())
	assert.Equal(t, "only", mgr.Default().Name)

	_, err = mgr.New("second")
	require.NoError(t, err)
	assert.Nil(t, mgr.Default())

	require.NoError(t, mgr.SetDefault("second"))
	assert.Equal(t, "second", mgr.Default().Name)

	assert.ErrorIs(t, mgr.SetDefault("nope"), keys.ErrAccountNotFound)
}

func TestJSONStorePersists(t *testing.T) {
	path := t.TempDir() + "/accounts.json"

	mgr := keys.NewManager(keys.WithStore(keys.NewJSONStore(path)), keys.WithKeystore(keys.NewInMemoryKeystore()))
	a, err := mgr.New("persisted")
	require.NoError(t, err)

	// Fresh manager over the same file sees the account.
	mgr2 := keys.NewManager(keys.WithStore(keys.NewJSONStore(path)), keys.WithKeystore(keys.NewInMemoryKeystore()))
	got, err := mgr2.Get("persisted")
	require.NoError(t, err)
	assert.Equal(t, a.Address, got.Address)
}
