package neoclient

import (
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/contract-harness/internal/testchain"
	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestOpenAccount(t *testing.T) {
	path := testchain.NewWallet(t, t.TempDir(), 0, "pass")

	acc, err := OpenAccount(config.Wallet{Path: path, Password: "pass"})
	require.NoError(t, err)
	require.True(t, acc.CanSign())
	require.Equal(t, testchain.Address(0), acc.Address)

	acc, err = OpenAccount(config.Wallet{Path: path, Password: "pass", Address: testchain.Address(0)})
	require.NoError(t, err)
	require.Equal(t, testchain.Address(0), acc.Address)

	t.Run("wrong password", func(t *testing.T) {
		_, err := OpenAccount(config.Wallet{Path: path, Password: "wrong"})
		require.Error(t, err)
	})
	t.Run("unknown account", func(t *testing.T) {
		_, err := OpenAccount(config.Wallet{Path: path, Password: "pass", Address: testchain.Address(1)})
		require.ErrorContains(t, err, "wallet contains no account")
	})
	t.Run("bad address", func(t *testing.T) {
		_, err := OpenAccount(config.Wallet{Path: path, Address: "bad"})
		require.Error(t, err)
	})
	t.Run("missing wallet", func(t *testing.T) {
		_, err := OpenAccount(config.Wallet{Path: filepath.Join(t.TempDir(), "none.json")})
		require.Error(t, err)
	})
}

func TestFaucetAccount(t *testing.T) {
	acc, err := FaucetAccount(config.Faucet{WIF: testchain.WIF(1)})
	require.NoError(t, err)
	require.Equal(t, testchain.Address(1), acc.Address)

	path := testchain.NewWallet(t, t.TempDir(), 2, "faucet")
	acc, err = FaucetAccount(config.Faucet{
		Wallet: config.Wallet{Path: path, Password: "faucet"},
		WIF:    testchain.WIF(1),
	})
	require.NoError(t, err)
	require.Equal(t, testchain.Address(2), acc.Address)

	_, err = FaucetAccount(config.Faucet{WIF: "bad"})
	require.Error(t, err)
	_, err = FaucetAccount(config.Faucet{})
	require.ErrorIs(t, err, ErrNoFaucet)
}
