package scenario

import (
	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/nspcc-dev/contract-harness/pkg/counter"
	"github.com/nspcc-dev/contract-harness/pkg/harness"
	"github.com/nspcc-dev/contract-harness/pkg/neoclient"
	"github.com/nspcc-dev/contract-harness/pkg/registry"
	"go.uber.org/zap"
)

// NewSetup creates the session setup sequence for the counter contract on
// the Neo network described by cfg. Registry is optional.
func NewSetup(cfg config.Config, reg *registry.Registry, log *zap.Logger) (*harness.Setup, error) {
	if log == nil {
		log = zap.NewNop()
	}
	funder := neoclient.NewFunder(nil, log)
	if cfg.Faucet.TargetAmount > 0 {
		acc, err := neoclient.FaucetAccount(cfg.Faucet)
		if err != nil {
			return nil, err
		}
		funder = neoclient.NewFunder(acc, log)
	}
	resolver, err := neoclient.NewResolver(reg, cfg.Contract.Manifest, log)
	if err != nil {
		return nil, err
	}
	return &harness.Setup{
		Network:       neoclient.NetworkInfo(cfg.Network),
		Connector:     neoclient.NewConnector(cfg, log),
		Funder:        funder,
		Resolver:      resolver,
		CodePath:      cfg.Contract.Path,
		InitMsg:       counter.InstantiateMsg(cfg.Contract.InitialCount),
		LabelPrefix:   cfg.Contract.LabelPrefix,
		TargetBalance: cfg.Faucet.TargetAmount,
		Log:           log,
	}, nil
}
