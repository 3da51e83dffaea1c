package fakechain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nspcc-dev/contract-harness/pkg/chain"
)

// CodeHash is the code hash of the only contract FakeChain knows.
const CodeHash = "c0dec0dec0dec0dec0dec0dec0dec0dec0dec0dec0dec0dec0dec0dec0dec0de"

// GasPerIncrement is the gas reported for every increment transaction.
const GasPerIncrement = 1234

// FakeChain is an in-memory counter contract chain implementing all chain
// collaborators (Connector, Client, Funder, Resolver). Hooks (*F fields) allow
// tests to inject failures, counters allow to check call numbers.
type FakeChain struct {
	ConnectF func(net chain.NetworkInfo) error
	FundF    func(target int64) error
	ResolveF func(msgs []chain.InstantiateMsg) error
	ExecuteF func(msgs []chain.ExecuteMsg) error
	// ResolveDelay is a time resolver sleeps before instantiation, it
	// widens race windows for concurrency tests.
	ResolveDelay time.Duration

	Connects  atomic.Int64
	Fundings  atomic.Int64
	Resolves  atomic.Int64
	Executes  atomic.Int64
	Queries   atomic.Int64
	Closes    atomic.Int64
	inFlight  atomic.Int64
	maxFlight atomic.Int64

	mtx       sync.Mutex
	sender    string
	balance   int64
	counters  map[string]int64
	codeKnown bool
	txs       []Tx
}

// Tx is a record of executed transaction.
type Tx struct {
	Seq      int
	Contract string
	Method   string
	Start    time.Time
	End      time.Time
}

// NewFakeChain returns a new FakeChain with the given sender address.
func NewFakeChain(sender string) *FakeChain {
	return &FakeChain{
		sender:   sender,
		counters: make(map[string]int64),
	}
}

// Connect implements chain.Connector.
func (fc *FakeChain) Connect(_ context.Context, net chain.NetworkInfo) (chain.Client, error) {
	fc.Connects.Add(1)
	if fc.ConnectF != nil {
		if err := fc.ConnectF(net); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

// SenderAddress implements chain.Client.
func (fc *FakeChain) SenderAddress() string {
	return fc.sender
}

// Close counts client closures.
func (fc *FakeChain) Close() {
	fc.Closes.Add(1)
}

// Balance returns sender balance.
func (fc *FakeChain) Balance() int64 {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	return fc.balance
}

// FillUpFromFaucet implements chain.Funder.
func (fc *FakeChain) FillUpFromFaucet(_ context.Context, _ chain.NetworkInfo, c chain.Client, target int64) error {
	fc.Fundings.Add(1)
	if c != chain.Client(fc) {
		return chain.ErrUnsupportedClient
	}
	if fc.FundF != nil {
		if err := fc.FundF(target); err != nil {
			return err
		}
	}
	fc.mtx.Lock()
	if fc.balance < target {
		fc.balance = target
	}
	fc.mtx.Unlock()
	return nil
}

// GetOrStoreCodeAndInstantiate implements chain.Resolver.
func (fc *FakeChain) GetOrStoreCodeAndInstantiate(_ context.Context, _ chain.Client, _ string, msgs []chain.InstantiateMsg) (chain.Instance, error) {
	n := fc.inFlight.Add(1)
	defer fc.inFlight.Add(-1)
	for {
		mx := fc.maxFlight.Load()
		if n <= mx || fc.maxFlight.CompareAndSwap(mx, n) {
			break
		}
	}
	fc.Resolves.Add(1)
	if fc.ResolveDelay != 0 {
		time.Sleep(fc.ResolveDelay)
	}
	if fc.ResolveF != nil {
		if err := fc.ResolveF(msgs); err != nil {
			return chain.Instance{}, err
		}
	}
	if len(msgs) == 0 {
		return chain.Instance{}, errors.New("no instantiate messages")
	}

	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	var inst chain.Instance
	for _, m := range msgs {
		var init struct {
			Count int64 `json:"count"`
		}
		if err := json.Unmarshal(m.InitMsg, &init); err != nil {
			return chain.Instance{}, fmt.Errorf("bad init message: %w", err)
		}
		addr := fmt.Sprintf("fake-contract-%d", len(fc.counters)+1)
		fc.counters[addr] = init.Count
		inst = chain.Instance{
			Address:  addr,
			Label:    m.Label,
			CodeInfo: chain.CodeInfo{CodeID: 1, CodeHash: CodeHash, Reused: fc.codeKnown},
		}
		fc.codeKnown = true
	}
	return inst, nil
}

// MaxConcurrentResolves returns the maximum number of concurrently running
// GetOrStoreCodeAndInstantiate calls ever seen.
func (fc *FakeChain) MaxConcurrentResolves() int64 {
	return fc.maxFlight.Load()
}

func method(msg []byte) (string, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return "", err
	}
	if len(m) != 1 {
		return "", fmt.Errorf("expected exactly one entry point, got %d", len(m))
	}
	for k := range m {
		return k, nil
	}
	return "", nil
}

// Execute implements chain.Client.
func (fc *FakeChain) Execute(_ context.Context, msgs []chain.ExecuteMsg, gasLimit int64) (chain.TxOutcome, error) {
	fc.Executes.Add(1)
	start := time.Now()
	if fc.ExecuteF != nil {
		if err := fc.ExecuteF(msgs); err != nil {
			return chain.TxOutcome{}, err
		}
	}
	if gasLimit < GasPerIncrement*int64(len(msgs)) {
		return chain.TxOutcome{}, errors.New("out of gas")
	}

	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	for _, m := range msgs {
		name, err := method(m.Msg)
		if err != nil {
			return chain.TxOutcome{}, err
		}
		if _, ok := fc.counters[m.ContractAddress]; !ok {
			return chain.TxOutcome{}, fmt.Errorf("unknown contract %s", m.ContractAddress)
		}
		if m.CodeHash != CodeHash {
			return chain.TxOutcome{}, fmt.Errorf("code hash mismatch for %s", m.ContractAddress)
		}
		if name != "increment" {
			return chain.TxOutcome{}, fmt.Errorf("unknown method %q", name)
		}
		fc.counters[m.ContractAddress]++
		fc.txs = append(fc.txs, Tx{
			Seq:      len(fc.txs),
			Contract: m.ContractAddress,
			Method:   name,
			Start:    start,
			End:      time.Now(),
		})
	}
	return chain.TxOutcome{
		GasUsed: GasPerIncrement * int64(len(msgs)),
		TxHash:  fmt.Sprintf("tx-%d", len(fc.txs)),
	}, nil
}

// QueryContractSmart implements chain.Client.
func (fc *FakeChain) QueryContractSmart(_ context.Context, address string, query []byte) ([]byte, error) {
	fc.Queries.Add(1)
	name, err := method(query)
	if err != nil {
		return nil, err
	}
	if name != "get_count" {
		return nil, fmt.Errorf("unknown query %q", name)
	}
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	cnt, ok := fc.counters[address]
	if !ok {
		return nil, fmt.Errorf("unknown contract %s", address)
	}
	return json.Marshal(map[string]int64{"count": cnt})
}

// Txs returns a copy of executed transaction records.
func (fc *FakeChain) Txs() []Tx {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	return append([]Tx(nil), fc.txs...)
}

// SetCount overrides the counter of the given contract.
func (fc *FakeChain) SetCount(address string, cnt int64) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	fc.counters[address] = cnt
}
