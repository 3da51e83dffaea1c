package neoclient

import (
	"context"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/contract-harness/pkg/chain"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

type (
	// Funder tops up client account GAS balance from the faucet account.
	Funder struct {
		faucet    *wallet.Account
		log       *zap.Logger
		newFaucet func(c *Client) (*faucet, error)
	}

	// faucet is a GAS token bound to the faucet account actor.
	faucet struct {
		addr  util.Uint160
		token Token
		wait  func(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
	}
)

var _ chain.Funder = (*Funder)(nil)

// NewFunder creates a Funder transferring GAS from the given account.
func NewFunder(acc *wallet.Account, log *zap.Logger) *Funder {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Funder{faucet: acc, log: log}
	f.newFaucet = f.dial
	return f
}

func (f *Funder) dial(c *Client) (*faucet, error) {
	if f.faucet == nil {
		return nil, ErrNoFaucet
	}
	if c.rpc == nil {
		return nil, chain.ErrUnsupportedClient
	}
	act, err := actor.NewSimple(c.rpc, f.faucet)
	if err != nil {
		return nil, fmt.Errorf("can't create faucet actor: %w", err)
	}
	return &faucet{addr: act.Sender(), token: gas.New(act), wait: act.Wait}, nil
}

// FillUpFromFaucet implements chain.Funder. Nothing is transferred if the
// client account already has the target amount (in GAS fractions).
func (f *Funder) FillUpFromFaucet(ctx context.Context, _ chain.NetworkInfo, c chain.Client, target int64) error {
	cl, ok := c.(*Client)
	if !ok {
		return chain.ErrUnsupportedClient
	}
	if target <= 0 {
		return nil
	}
	sender := cl.act.Sender()
	balance, err := cl.gas.BalanceOf(sender)
	if err != nil {
		return fmt.Errorf("can't get balance: %w", err)
	}
	want := big.NewInt(target)
	if balance.Cmp(want) >= 0 {
		f.log.Debug("account already funded",
			zap.String("account", address.Uint160ToString(sender)),
			zap.Stringer("balance", balance))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fc, err := f.newFaucet(cl)
	if err != nil {
		return err
	}
	amount := new(big.Int).Sub(want, balance)
	aer, err := fc.wait(fc.token.Transfer(fc.addr, sender, amount, nil))
	if err != nil {
		return fmt.Errorf("faucet transfer failed: %w", err)
	}
	if aer.VMState != vmstate.Halt {
		return fmt.Errorf("faucet transfer faulted: %s", aer.FaultException)
	}
	fundings.Inc()

	balance, err = cl.gas.BalanceOf(sender)
	if err != nil {
		return fmt.Errorf("can't get balance: %w", err)
	}
	if balance.Cmp(want) < 0 {
		return fmt.Errorf("balance %s is still below target %d after faucet transfer", balance, target)
	}
	f.log.Info("account funded",
		zap.String("account", address.Uint160ToString(sender)),
		zap.Stringer("amount", amount),
		zap.Stringer("balance", balance))
	return nil
}
