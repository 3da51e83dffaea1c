/*
Package chain describes the blockchain collaborators the harness depends on.

The harness itself never talks to a node directly. It drives a [Client]
obtained from a [Connector], tops up the sender balance with a [Funder] and
gets its contract instance from a [Resolver]. Messages exchanged with
contracts are JSON documents of the form {"<entry_point>": {<args>}}, the
concrete chain binding decides how to map them onto its own calls.
*/
package chain

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnsupportedClient is returned by chain-specific collaborators (funders,
// resolvers) when given a Client implementation they can't work with.
var ErrUnsupportedClient = errors.New("unsupported chain client")

type (
	// NetworkInfo identifies the network the harness operates on.
	NetworkInfo struct {
		Endpoint string
		ChainID  string
	}

	// ContractInfo is a reference to a deployed contract instance. It's a
	// value type, once produced it's never changed.
	ContractInfo struct {
		Address  string `json:"address"`
		CodeHash string `json:"code_hash"`
	}

	// CodeInfo describes the contract code an instance was created from.
	CodeInfo struct {
		CodeID   uint64 `json:"code_id"`
		CodeHash string `json:"code_hash"`
		// Reused is set when the code was known before (uploaded earlier).
		Reused bool `json:"reused"`
	}

	// Instance is a result of contract instantiation.
	Instance struct {
		Address  string   `json:"address"`
		Label    string   `json:"label"`
		CodeInfo CodeInfo `json:"code_info"`
	}

	// TxOutcome is a result of successfully included transaction.
	TxOutcome struct {
		GasUsed int64
		TxHash  string
	}

	// ExecuteMsg is a single mutating contract call.
	ExecuteMsg struct {
		Sender          string
		ContractAddress string
		CodeHash        string
		Msg             json.RawMessage
	}

	// InstantiateMsg describes a contract instance to create. CodeID and
	// CodeHash are filled in by the Resolver.
	InstantiateMsg struct {
		Sender   string
		CodeID   *uint64
		InitMsg  json.RawMessage
		Label    string
		CodeHash string
	}
)

// Instance returns a ContractInfo reference for this instance.
func (i Instance) ContractInfo() ContractInfo {
	return ContractInfo{Address: i.Address, CodeHash: i.CodeInfo.CodeHash}
}

// IsZero returns true if this reference points to nothing.
func (c ContractInfo) IsZero() bool {
	return c.Address == "" && c.CodeHash == ""
}

// Client is an authenticated chain client. All calls are synchronous, Execute
// returns after the transaction is included (or rejected).
type Client interface {
	SenderAddress() string
	Execute(ctx context.Context, msgs []ExecuteMsg, gasLimit int64) (TxOutcome, error)
	QueryContractSmart(ctx context.Context, address string, query []byte) ([]byte, error)
}

// Connector creates clients for the given network.
type Connector interface {
	Connect(ctx context.Context, net NetworkInfo) (Client, error)
}

// Funder tops up the client's sender balance up to the target amount.
type Funder interface {
	FillUpFromFaucet(ctx context.Context, net NetworkInfo, c Client, target int64) error
}

// Resolver uploads (or reuses) contract code and instantiates it.
type Resolver interface {
	GetOrStoreCodeAndInstantiate(ctx context.Context, c Client, codePath string, msgs []InstantiateMsg) (Instance, error)
}

// Close releases client resources if the client holds any (has a Close
// method).
func Close(c Client) {
	if cl, ok := c.(interface{ Close() }); ok {
		cl.Close()
	}
}
