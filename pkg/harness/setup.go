package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/contract-harness/pkg/chain"
	"go.uber.org/zap"
)

// Setup is the one-time session setup sequence: connect, fund the sender,
// deploy (or reuse) the contract. Its Run method is a SetupFunc.
type Setup struct {
	Network   chain.NetworkInfo
	Connector chain.Connector
	Funder    chain.Funder
	Resolver  chain.Resolver

	// CodePath is the path to the contract bytecode.
	CodePath string
	// InitMsg is the instantiation message, e.g. {"count": 4}.
	InitMsg json.RawMessage
	// LabelPrefix is prepended to a random suffix to get a unique label.
	LabelPrefix string
	// TargetBalance is the sender balance to fill up to.
	TargetBalance int64

	Log *zap.Logger
}

// NewLabel returns a unique instance label with the given prefix.
func NewLabel(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + " " + uuid.NewString()
}

// Run performs the setup sequence. Nothing is returned unless all steps
// succeed, errors are [*SetupError].
func (s *Setup) Run(ctx context.Context) (*Env, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	setupAttempts.Inc()
	start := time.Now()
	defer func() { setupDuration.Observe(time.Since(start).Seconds()) }()

	fail := func(stage Stage, err error) (*Env, error) {
		addSetupFailure(stage)
		return nil, stageError(stage, err)
	}

	if s.Connector == nil || s.Funder == nil || s.Resolver == nil {
		return fail(StageConnect, errors.New("setup is missing collaborators"))
	}

	log.Info("connecting", zap.String("endpoint", s.Network.Endpoint), zap.String("chain", s.Network.ChainID))
	client, err := s.Connector.Connect(ctx, s.Network)
	if err != nil {
		return fail(StageConnect, err)
	}

	log.Info("funding sender", zap.String("sender", client.SenderAddress()), zap.Int64("target", s.TargetBalance))
	err = s.Funder.FillUpFromFaucet(ctx, s.Network, client, s.TargetBalance)
	if err != nil {
		chain.Close(client)
		return fail(StageFund, err)
	}

	msgs := []chain.InstantiateMsg{{
		Sender:  client.SenderAddress(),
		InitMsg: s.InitMsg,
		Label:   NewLabel(s.LabelPrefix),
	}}
	log.Info("resolving contract", zap.String("path", s.CodePath), zap.String("label", msgs[0].Label))
	inst, err := s.Resolver.GetOrStoreCodeAndInstantiate(ctx, client, s.CodePath, msgs)
	if err != nil {
		chain.Close(client)
		return fail(StageDeploy, err)
	}
	ref := inst.ContractInfo()
	if ref.Address == "" || ref.CodeHash == "" {
		chain.Close(client)
		return fail(StageDeploy, fmt.Errorf("resolver returned incomplete instance %+v", inst))
	}
	log.Info("contract instantiated",
		zap.String("address", ref.Address),
		zap.String("code hash", ref.CodeHash),
		zap.Bool("code reused", inst.CodeInfo.Reused))

	return &Env{Client: client, Contract: ref}, nil
}
