/*
Package testchain provides well-known private network accounts for tests.
*/
package testchain

import (
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/stretchr/testify/require"
)

// privNetKeys is a list of unencrypted WIFs of the private network validators.
var privNetKeys = []string{
	"KzfPUYDC9n2yf4fK5ro4C8KMcdeXtFuEnStycbZgX3GomiUsvX6W",
	"KzgWE3u3EDp13XPXXuTKZxeJ3Gi8Bsm8f9ijY3ZsCKKRvZUo1Cdn",
	"KxyjQ8eUa4FHt3Gvioyt1Wz29cTUrE4eTqX3yFSk1YFCsPL8uNsY",
	"L2oEXKRAAMiPEZukwR5ho2S6SMeQLhcK9mF71ZnF7GvT8dU4Kkgz",
}

// Size returns the number of known accounts.
func Size() int {
	return len(privNetKeys)
}

// WIF returns unencrypted wif of the specified account.
func WIF(i int) string {
	return privNetKeys[i]
}

// PrivateKey returns private key of account #i.
func PrivateKey(i int) *keys.PrivateKey {
	priv, err := keys.NewPrivateKeyFromWIF(WIF(i))
	if err != nil {
		panic(err)
	}
	return priv
}

// Account returns a new signing wallet account #i.
func Account(i int) *wallet.Account {
	return wallet.NewAccountFromPrivateKey(PrivateKey(i))
}

// ScriptHash returns script hash of account #i.
func ScriptHash(i int) util.Uint160 {
	return PrivateKey(i).GetScriptHash()
}

// Address returns address of account #i.
func Address(i int) string {
	return address.Uint160ToString(ScriptHash(i))
}

// NewWallet saves a NEP-6 wallet with account #i encrypted with pass into
// dir and returns its path.
func NewWallet(t *testing.T, dir string, i int, pass string) string {
	path := filepath.Join(dir, "wallet.json")
	w, err := wallet.NewWallet(path)
	require.NoError(t, err)
	acc := Account(i)
	require.NoError(t, acc.Encrypt(pass, w.Scrypt))
	w.AddAccount(acc)
	require.NoError(t, w.Save())
	return path
}
