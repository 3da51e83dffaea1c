/*
Package neoclient binds the harness chain collaborators to Neo N3 networks.

Contract messages of the form {"entry_point": {"arg": value, ...}} are mapped
onto contract method calls: snake_case entry point names are converted to
lowerCamelCase method names and object values become positional arguments in
the document order. Contract query results are converted back to JSON.
*/
package neoclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/nspcc-dev/contract-harness/pkg/chain"
	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

var (
	// ErrGasLimitExceeded is returned when transaction test invocation
	// consumes more GAS than allowed.
	ErrGasLimitExceeded = errors.New("gas limit exceeded")
	// ErrCodeHashMismatch is returned when the contract at the given address
	// doesn't have the expected code.
	ErrCodeHashMismatch = errors.New("code hash mismatch")
)

type (
	// Actor is the part of actor.Actor used by the client.
	Actor interface {
		Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
		SendTunedRun(script []byte, attrs []transaction.Attribute, txHook actor.TransactionCheckerModifier) (util.Uint256, uint32, error)
		Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
		Sender() util.Uint160
	}

	// Deployer is the part of management.Contract used by the client.
	Deployer interface {
		GetContract(hash util.Uint160) (*state.Contract, error)
		Deploy(nefFile *nef.File, manif *manifest.Manifest, data any) (util.Uint256, uint32, error)
	}

	// Token is the part of nep17.Token used for GAS transfers.
	Token interface {
		BalanceOf(account util.Uint160) (*big.Int, error)
		Transfer(from util.Uint160, to util.Uint160, amount *big.Int, data any) (util.Uint256, uint32, error)
	}

	// Client is a chain.Client operating on behalf of a single Neo account.
	Client struct {
		rpc      *rpcclient.Client
		act      Actor
		mgmt     Deployer
		gas      Token
		network  netmode.Magic
		gasScale int64
		log      *zap.Logger
		stop     context.CancelFunc

		verified sync.Map
	}

	// Connector creates Clients for the configured wallet account.
	Connector struct {
		Wallet         config.Wallet
		GasScale       int64
		DialTimeout    time.Duration
		RequestTimeout time.Duration
		Log            *zap.Logger
	}
)

var _ chain.Client = (*Client)(nil)

func newClient(rpc *rpcclient.Client, act Actor, mgmt Deployer, tok Token, network netmode.Magic, gasScale int64, log *zap.Logger) *Client {
	if gasScale <= 0 {
		gasScale = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		rpc:      rpc,
		act:      act,
		mgmt:     mgmt,
		gas:      tok,
		network:  network,
		gasScale: gasScale,
		log:      log,
	}
}

// Connect implements chain.Connector. It dials the node, checks that it
// belongs to the expected network and returns a Client for the wallet
// account.
func (c *Connector) Connect(ctx context.Context, net chain.NetworkInfo) (chain.Client, error) {
	magic, err := ParseChainID(net.ChainID)
	if err != nil {
		return nil, err
	}
	acc, err := OpenAccount(c.Wallet)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The client context bounds every request and transaction wait, it lives
	// until Close. ctx only limits the initial handshake.
	rctx, stop := context.WithCancel(context.Background())
	rpc, err := rpcclient.New(rctx, net.Endpoint, rpcclient.Options{
		DialTimeout:    c.DialTimeout,
		RequestTimeout: c.RequestTimeout,
	})
	if err != nil {
		stop()
		return nil, fmt.Errorf("can't create RPC client: %w", err)
	}

	type connected struct {
		cl  *Client
		err error
	}
	done := make(chan connected, 1)
	go func() {
		cl, err := connect(rpc, acc, magic, c.GasScale, c.Log)
		done <- connected{cl, err}
	}()
	select {
	case <-ctx.Done():
		stop()
		rpc.Close()
		return nil, fmt.Errorf("can't connect to %s: %w", net.Endpoint, ctx.Err())
	case res := <-done:
		if res.err != nil {
			stop()
			rpc.Close()
			return nil, res.err
		}
		res.cl.stop = stop
		return res.cl, nil
	}
}

func connect(rpc *rpcclient.Client, acc *wallet.Account, magic netmode.Magic, gasScale int64, log *zap.Logger) (*Client, error) {
	err := rpc.Init()
	if err != nil {
		return nil, fmt.Errorf("can't initialize RPC client: %w", err)
	}
	act, err := actor.NewSimple(rpc, acc)
	if err != nil {
		return nil, fmt.Errorf("can't create actor: %w", err)
	}
	if magic != 0 && act.GetNetwork() != magic {
		return nil, fmt.Errorf("network mismatch: node is on %s, expected %s", act.GetNetwork(), magic)
	}
	return newClient(rpc, act, management.New(act), gas.New(act), act.GetNetwork(), gasScale, log), nil
}

// Close closes the underlying RPC client, pending transaction waits are
// aborted.
func (c *Client) Close() {
	if c.stop != nil {
		c.stop()
	}
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// Network returns the network magic of the connected node.
func (c *Client) Network() netmode.Magic {
	return c.network
}

// SenderAddress implements chain.Client.
func (c *Client) SenderAddress() string {
	return address.Uint160ToString(c.act.Sender())
}

// Execute implements chain.Client. All messages are executed in a single
// transaction, gasLimit is scaled by the GasScale and checked against the
// test invocation result before sending. It returns after the transaction is
// accepted into a block.
func (c *Client) Execute(ctx context.Context, msgs []chain.ExecuteMsg, gasLimit int64) (chain.TxOutcome, error) {
	res, err := c.execute(ctx, msgs, gasLimit)
	txSent.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		txGas.Observe(float64(res.GasUsed))
	}
	return res, err
}

func (c *Client) execute(ctx context.Context, msgs []chain.ExecuteMsg, gasLimit int64) (chain.TxOutcome, error) {
	if len(msgs) == 0 {
		return chain.TxOutcome{}, ErrEmptyMessage
	}
	if err := ctx.Err(); err != nil {
		return chain.TxOutcome{}, err
	}
	b := smartcontract.NewBuilder()
	for i := range msgs {
		if msgs[i].Sender != "" && msgs[i].Sender != c.SenderAddress() {
			return chain.TxOutcome{}, fmt.Errorf("message %d: sender %s doesn't match client account %s",
				i, msgs[i].Sender, c.SenderAddress())
		}
		h, err := ParseContract(msgs[i].ContractAddress)
		if err != nil {
			return chain.TxOutcome{}, fmt.Errorf("message %d: %w", i, err)
		}
		if msgs[i].CodeHash != "" {
			if err := c.verifyCode(h, msgs[i].CodeHash); err != nil {
				return chain.TxOutcome{}, fmt.Errorf("message %d: %w", i, err)
			}
		}
		method, args, err := decodeCall(msgs[i].Msg)
		if err != nil {
			return chain.TxOutcome{}, fmt.Errorf("message %d: %w", i, err)
		}
		b.InvokeMethod(h, method, args...)
	}
	script, err := b.Script()
	if err != nil {
		return chain.TxOutcome{}, fmt.Errorf("can't build script: %w", err)
	}

	limit := gasLimit * c.gasScale
	h, vub, err := c.act.SendTunedRun(script, nil, func(r *result.Invoke, t *transaction.Transaction) error {
		if err := actor.DefaultCheckerModifier(r, t); err != nil {
			return err
		}
		if gasLimit > 0 && r.GasConsumed > limit {
			return fmt.Errorf("%w: %d > %d", ErrGasLimitExceeded, r.GasConsumed, limit)
		}
		return nil
	})
	aer, err := c.act.Wait(h, vub, err)
	if err != nil {
		return chain.TxOutcome{}, fmt.Errorf("transaction failed: %w", err)
	}
	if aer.VMState != vmstate.Halt {
		return chain.TxOutcome{}, fmt.Errorf("transaction %s faulted: %s", h.StringLE(), aer.FaultException)
	}
	c.log.Debug("transaction accepted",
		zap.Stringer("hash", h),
		zap.Int64("gas", aer.GasConsumed),
		zap.Int("calls", len(msgs)))
	return chain.TxOutcome{GasUsed: aer.GasConsumed, TxHash: h.StringLE()}, nil
}

// verifyCode checks that the contract script hash matches the given code hash,
// verified contracts are remembered.
func (c *Client) verifyCode(h util.Uint160, codeHash string) error {
	if v, ok := c.verified.Load(h); ok {
		if v.(string) != codeHash {
			return fmt.Errorf("%w: contract %s has code %s, not %s", ErrCodeHashMismatch, FormatContract(h), v, codeHash)
		}
		return nil
	}
	cs, err := c.mgmt.GetContract(h)
	if err != nil {
		return fmt.Errorf("can't get contract %s: %w", FormatContract(h), err)
	}
	if cs == nil {
		return fmt.Errorf("contract %s is not deployed", FormatContract(h))
	}
	actual := CodeHash(cs.NEF.Script)
	c.verified.Store(h, actual)
	if actual != codeHash {
		return fmt.Errorf("%w: contract %s has code %s, not %s", ErrCodeHashMismatch, FormatContract(h), actual, codeHash)
	}
	return nil
}

// QueryContractSmart implements chain.Client. It performs a test invocation
// and returns the resulting stack item as JSON.
func (c *Client) QueryContractSmart(ctx context.Context, addr string, query []byte) ([]byte, error) {
	res, err := c.query(ctx, addr, query)
	queries.WithLabelValues(resultLabel(err)).Inc()
	return res, err
}

func (c *Client) query(ctx context.Context, addr string, query []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := ParseContract(addr)
	if err != nil {
		return nil, err
	}
	method, args, err := decodeCall(query)
	if err != nil {
		return nil, err
	}
	itm, err := unwrap.Item(c.act.Call(h, method, args...))
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", method, err)
	}
	return stackitem.ToJSON(itm)
}

// ParseContract parses contract address given either as 0x-prefixed
// little-endian script hash or as a Neo address.
func ParseContract(s string) (util.Uint160, error) {
	if strings.HasPrefix(s, "0x") {
		h, err := util.Uint160DecodeStringLE(s[2:])
		if err != nil {
			return util.Uint160{}, fmt.Errorf("invalid contract hash %q: %w", s, err)
		}
		return h, nil
	}
	h, err := address.StringToUint160(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid contract address %q: %w", s, err)
	}
	return h, nil
}

// FormatContract returns the 0x-prefixed little-endian contract hash string.
func FormatContract(h util.Uint160) string {
	return "0x" + h.StringLE()
}

// CodeHash returns the code hash of the contract script.
func CodeHash(script []byte) string {
	return hash.Sha256(script).StringBE()
}

// NewConnector returns a Connector for the sender wallet and network
// timeouts from the configuration.
func NewConnector(cfg config.Config, log *zap.Logger) *Connector {
	return &Connector{
		Wallet:         cfg.Wallet,
		GasScale:       cfg.Contract.GasScale,
		DialTimeout:    cfg.Network.DialTimeout,
		RequestTimeout: cfg.Network.RequestTimeout,
		Log:            log,
	}
}

// NetworkInfo returns chain.NetworkInfo for the network configuration.
func NetworkInfo(cfg config.Network) chain.NetworkInfo {
	return chain.NetworkInfo{Endpoint: cfg.Endpoint, ChainID: cfg.ChainID}
}
