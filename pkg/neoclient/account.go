package neoclient

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
)

// ErrNoFaucet is returned when no faucet account is configured.
var ErrNoFaucet = errors.New("faucet account is not configured")

// OpenAccount opens the wallet and returns an unlocked account from it. The
// default wallet account is used if no address is given.
func OpenAccount(cfg config.Wallet) (*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("can't open wallet: %w", err)
	}

	var addr util.Uint160
	if cfg.Address == "" {
		addr = w.GetChangeAddress()
	} else {
		addr, err = address.StringToUint160(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid account address: %w", err)
		}
	}
	acc := w.GetAccount(addr)
	if acc == nil {
		return nil, fmt.Errorf("wallet contains no account for '%s'", address.Uint160ToString(addr))
	}

	if acc.CanSign() || acc.EncryptedWIF == "" {
		return acc, nil
	}
	err = acc.Decrypt(cfg.Password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("can't unlock account %s: %w", acc.Address, err)
	}
	return acc, nil
}

// FaucetAccount returns faucet account either from the wallet or from the WIF
// given.
func FaucetAccount(cfg config.Faucet) (*wallet.Account, error) {
	switch {
	case cfg.Wallet.Path != "":
		return OpenAccount(cfg.Wallet)
	case cfg.WIF != "":
		acc, err := wallet.NewAccountFromWIF(cfg.WIF)
		if err != nil {
			return nil, fmt.Errorf("invalid faucet WIF: %w", err)
		}
		return acc, nil
	default:
		return nil, ErrNoFaucet
	}
}
