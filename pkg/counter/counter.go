/*
Package counter implements the interaction protocol of the counter contract.

The contract keeps a single integer. It is instantiated with {"count": N},
answers {"get_count": {}} queries with {"count": N} and increments the value
on every {"increment": {}} transaction.
*/
package counter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nspcc-dev/contract-harness/pkg/chain"
	"go.uber.org/zap"
)

const (
	// IncrementGasLimit is the gas limit used for every increment transaction.
	IncrementGasLimit = 200000
	// DefaultInitialCount is the count the contract is instantiated with.
	DefaultInitialCount = 4
	// DefaultStressLoad is the number of increments done by stress scenario.
	DefaultStressLoad = 10
)

var (
	getCountQuery = []byte(`{"get_count": {}}`)
	incrementMsg  = []byte(`{"increment": {}}`)
)

// CountResponse is a get_count query result.
type CountResponse struct {
	Count int64 `json:"count"`
}

// InstantiateMsg returns instantiation message setting the initial count.
func InstantiateMsg(count int64) json.RawMessage {
	// Can't fail for a plain struct.
	b, _ := json.Marshal(struct {
		Count int64 `json:"count"`
	}{count})
	return b
}

// Contract is a counter contract instance bound to some client.
type Contract struct {
	client chain.Client
	ref    chain.ContractInfo
	log    *zap.Logger
}

// New creates a Contract using the given client and contract reference.
func New(c chain.Client, ref chain.ContractInfo, log *zap.Logger) *Contract {
	if log == nil {
		log = zap.NewNop()
	}
	return &Contract{client: c, ref: ref, log: log}
}

// Ref returns the contract reference used.
func (c *Contract) Ref() chain.ContractInfo {
	return c.ref
}

// QueryCount fetches the current counter value. Results are never cached,
// errors are returned as is.
func (c *Contract) QueryCount(ctx context.Context) (CountResponse, error) {
	raw, err := c.client.QueryContractSmart(ctx, c.ref.Address, getCountQuery)
	if err != nil {
		return CountResponse{}, err
	}
	var resp struct {
		Count *int64 `json:"count"`
	}
	err = json.Unmarshal(raw, &resp)
	if err != nil {
		return CountResponse{}, fmt.Errorf("invalid get_count response %q: %w", raw, err)
	}
	if resp.Count == nil {
		return CountResponse{}, fmt.Errorf("invalid get_count response %q: no count", raw)
	}
	return CountResponse{Count: *resp.Count}, nil
}

// IncrementTx sends one increment transaction to the given contract and waits
// for its inclusion. There are no retries.
func (c *Contract) IncrementTx(ctx context.Context, ref chain.ContractInfo) (chain.TxOutcome, error) {
	msgs := []chain.ExecuteMsg{{
		Sender:          c.client.SenderAddress(),
		ContractAddress: ref.Address,
		CodeHash:        ref.CodeHash,
		Msg:             incrementMsg,
	}}
	res, err := c.client.Execute(ctx, msgs, IncrementGasLimit)
	if err != nil {
		return chain.TxOutcome{}, err
	}
	c.log.Info("increment tx used gas", zap.Int64("gas", res.GasUsed), zap.String("tx", res.TxHash))
	return res, nil
}

// StressIncrement sends n increment transactions one after another, the next
// one is only sent after the previous one is completed. It returns the number
// of successfully completed transactions.
func (c *Contract) StressIncrement(ctx context.Context, n int) (int, error) {
	for i := 0; i < n; i++ {
		_, err := c.IncrementTx(ctx, c.ref)
		if err != nil {
			return i, fmt.Errorf("increment %d of %d: %w", i+1, n, err)
		}
	}
	return n, nil
}

// MismatchError is an on-chain state assertion failure.
type MismatchError struct {
	What     string
	Expected int64
	Actual   int64
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", e.What, e.Expected, e.Actual)
}

// IsMismatch checks whether err is a state assertion failure.
func IsMismatch(err error) bool {
	var me *MismatchError
	return errors.As(err, &me)
}

// CheckCount verifies the current contract count to be equal to expected.
func CheckCount(ctx context.Context, c *Contract, expected int64) error {
	resp, err := c.QueryCount(ctx)
	if err != nil {
		return err
	}
	c.log.Info("count response", zap.Int64("count", resp.Count))
	if resp.Count != expected {
		return &MismatchError{What: "counter value", Expected: expected, Actual: resp.Count}
	}
	return nil
}

// CheckStress runs StressIncrement(n) and verifies the counter to be advanced
// by exactly n. It returns the number of completed increments along with the
// error, so that callers can account for them.
func CheckStress(ctx context.Context, c *Contract, n int) (int, error) {
	before, err := c.QueryCount(ctx)
	if err != nil {
		return 0, err
	}
	done, err := c.StressIncrement(ctx, n)
	if err != nil {
		return done, err
	}
	after, err := c.QueryCount(ctx)
	if err != nil {
		return done, err
	}
	if delta := after.Count - before.Count; delta != int64(n) {
		return done, &MismatchError{
			What:     fmt.Sprintf("counter delta after stress test (expected %d instead of %d)", before.Count+int64(n), after.Count),
			Expected: int64(n),
			Actual:   delta,
		}
	}
	return done, nil
}
