package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/contract-harness/cli/options"
	"github.com/nspcc-dev/contract-harness/pkg/chain"
	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/nspcc-dev/contract-harness/pkg/counter"
	"github.com/nspcc-dev/contract-harness/pkg/neoclient"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var errNoContract = errors.New("no contract address specified, use option '--contract' or '-c'")

// connect is replaced in tests.
var connect = func(ctx context.Context, cfg config.Config, log *zap.Logger) (chain.Client, error) {
	return neoclient.NewConnector(cfg, log).Connect(ctx, neoclient.NetworkInfo(cfg.Network))
}

var contractFlag = cli.StringFlag{
	Name:  "contract, c",
	Usage: "counter contract address (0x-prefixed LE script hash or Neo address)",
}

// NewCommands returns 'count' and 'increment' commands.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:      "count",
		Usage:     "Print the current count of a deployed counter contract",
		UsageText: "harness count --contract <address> [--config-file file]",
		Action:    printCount,
		Flags:     options.WithCommon(contractFlag),
	}, {
		Name:      "increment",
		Usage:     "Send sequential increment transactions to a deployed counter contract",
		UsageText: "harness increment --contract <address> [--code-hash hash] [--times N] [--config-file file]",
		Action:    increment,
		Flags: options.WithCommon(contractFlag,
			cli.StringFlag{
				Name:  "code-hash",
				Usage: "expected contract code hash (checked before sending)",
			},
			cli.IntFlag{
				Name:  "times, n",
				Value: 1,
				Usage: "number of increments to send",
			},
		),
	}}
}

func getContract(ctx *cli.Context) (*counter.Contract, func(), error) {
	addr := ctx.String("contract")
	if addr == "" {
		return nil, nil, errNoContract
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Wallet.Path == "" {
		return nil, nil, errors.New("no sender wallet specified")
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	client, err := connect(gctx, cfg, log)
	if err != nil {
		cancel()
		_ = log.Sync()
		return nil, nil, fmt.Errorf("can't connect: %w", err)
	}
	closer := func() {
		chain.Close(client)
		cancel()
		_ = log.Sync()
	}
	ref := chain.ContractInfo{Address: addr, CodeHash: ctx.String("code-hash")}
	return counter.New(client, ref, log), closer, nil
}

func printCount(ctx *cli.Context) error {
	c, closer, err := getContract(ctx)
	if err != nil {
		return options.Exit(err)
	}
	defer closer()

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	resp, err := c.QueryCount(gctx)
	if err != nil {
		return options.Exit(err)
	}
	options.Fprintf(ctx, "%d\n", resp.Count)
	return nil
}

func increment(ctx *cli.Context) error {
	times := ctx.Int("times")
	if times <= 0 {
		return options.Exit(fmt.Errorf("invalid number of increments %d", times))
	}
	c, closer, err := getContract(ctx)
	if err != nil {
		return options.Exit(err)
	}
	defer closer()

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	for i := 0; i < times; i++ {
		res, err := c.IncrementTx(gctx, c.Ref())
		if err != nil {
			return options.Exit(fmt.Errorf("increment %d of %d: %w", i+1, times, err))
		}
		options.Fprintf(ctx, "%s: %d gas\n", res.TxHash, res.GasUsed)
	}
	resp, err := c.QueryCount(gctx)
	if err != nil {
		return options.Exit(err)
	}
	options.Fprintf(ctx, "count: %d\n", resp.Count)
	return nil
}
