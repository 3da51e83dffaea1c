package neoclient

import (
	"errors"
	"math/big"
	"sync"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
)

type (
	fakeActor struct {
		sender util.Uint160

		// call is returned by Call.
		call    *result.Invoke
		callErr error
		// invoke is passed to SendTunedRun hook.
		invoke  result.Invoke
		sendErr error
		// vmState and fault are used for Wait results.
		vmState vmstate.State
		fault   string
		waitErr error

		calls   []string
		scripts [][]byte
		sent    int
	}

	fakeDeployer struct {
		sender    util.Uint160
		contracts map[util.Uint160]*state.Contract
		getErr    error
		deployErr error
		deployed  []any
	}

	fakeToken struct {
		mtx       sync.Mutex
		balances  map[util.Uint160]int64
		transfers int
		// stuck makes transfers no-op.
		stuck bool
	}
)

func newFakeActor(sender util.Uint160) *fakeActor {
	return &fakeActor{
		sender:  sender,
		invoke:  result.Invoke{State: vmstate.Halt.String(), GasConsumed: 1000},
		vmState: vmstate.Halt,
	}
}

func (a *fakeActor) Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error) {
	a.calls = append(a.calls, operation)
	return a.call, a.callErr
}

func (a *fakeActor) SendTunedRun(script []byte, attrs []transaction.Attribute, txHook actor.TransactionCheckerModifier) (util.Uint256, uint32, error) {
	a.scripts = append(a.scripts, script)
	if a.sendErr != nil {
		return util.Uint256{}, 0, a.sendErr
	}
	inv := a.invoke
	if err := txHook(&inv, transaction.New(script, inv.GasConsumed)); err != nil {
		return util.Uint256{}, 0, err
	}
	a.sent++
	return util.Uint256{byte(a.sent)}, 100, nil
}

func (a *fakeActor) Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error) {
	if err != nil {
		return nil, err
	}
	if a.waitErr != nil {
		return nil, a.waitErr
	}
	return &state.AppExecResult{
		Container: h,
		Execution: state.Execution{
			VMState:        a.vmState,
			GasConsumed:    a.invoke.GasConsumed,
			FaultException: a.fault,
		},
	}, nil
}

func (a *fakeActor) Sender() util.Uint160 {
	return a.sender
}

func haltResult(items ...stackitem.Item) *result.Invoke {
	return &result.Invoke{State: vmstate.Halt.String(), Stack: items}
}

func newFakeDeployer(sender util.Uint160) *fakeDeployer {
	return &fakeDeployer{sender: sender, contracts: make(map[util.Uint160]*state.Contract)}
}

func (d *fakeDeployer) GetContract(h util.Uint160) (*state.Contract, error) {
	if d.getErr != nil {
		return nil, d.getErr
	}
	return d.contracts[h], nil
}

func (d *fakeDeployer) Deploy(nefFile *nef.File, manif *manifest.Manifest, data any) (util.Uint256, uint32, error) {
	if d.deployErr != nil {
		return util.Uint256{}, 0, d.deployErr
	}
	h := state.CreateContractHash(d.sender, nefFile.Checksum, manif.Name)
	if d.contracts[h] != nil {
		return util.Uint256{}, 0, errors.New("contract already exists")
	}
	d.contracts[h] = &state.Contract{ContractBase: state.ContractBase{
		Hash:     h,
		NEF:      *nefFile,
		Manifest: *manif,
	}}
	d.deployed = append(d.deployed, data)
	return util.Uint256{0xde, byte(len(d.deployed))}, 100, nil
}

func newFakeToken() *fakeToken {
	return &fakeToken{balances: make(map[util.Uint160]int64)}
}

func (t *fakeToken) BalanceOf(account util.Uint160) (*big.Int, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return big.NewInt(t.balances[account]), nil
}

func (t *fakeToken) Transfer(from util.Uint160, to util.Uint160, amount *big.Int, data any) (util.Uint256, uint32, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.transfers++
	if t.balances[from] < amount.Int64() {
		return util.Uint256{}, 0, errors.New("insufficient funds")
	}
	if !t.stuck {
		t.balances[from] -= amount.Int64()
		t.balances[to] += amount.Int64()
	}
	return util.Uint256{0xfa, byte(t.transfers)}, 100, nil
}
