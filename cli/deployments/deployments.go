package deployments

import (
	"errors"
	"fmt"
	"time"

	"github.com/nspcc-dev/contract-harness/cli/options"
	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/nspcc-dev/contract-harness/pkg/neoclient"
	"github.com/nspcc-dev/contract-harness/pkg/registry"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// NewCommands returns 'deployments' command.
func NewCommands() []cli.Command {
	common := []cli.Flag{options.Config, options.ConfigFile}
	common = append(common, options.Network...)
	return []cli.Command{{
		Name:  "deployments",
		Usage: "Work with the registry of deployed contracts",
		Subcommands: []cli.Command{{
			Name:      "list",
			Usage:     "List contract instances deployed by the harness",
			UsageText: "harness deployments list [--code-hash hash] [--all] [--config-file file]",
			Action:    listDeployments,
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "code-hash",
					Usage: "list instances of this code only",
				},
				cli.BoolFlag{
					Name:  "all, a",
					Usage: "list instances from all networks",
				},
			}, common...),
		}, {
			Name:      "forget",
			Usage:     "Remove code record and all of its instances from the registry",
			UsageText: "harness deployments forget <code-hash> [--config-file file]",
			Action:    forgetCode,
			Flags:     common,
		}},
	}}
}

func openRegistry(ctx *cli.Context) (*registry.Registry, string, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return nil, "", err
	}
	network, err := networkName(cfg)
	if err != nil {
		return nil, "", err
	}
	reg, err := registry.Open(cfg.Registry)
	if err != nil {
		return nil, "", fmt.Errorf("can't open registry: %w", err)
	}
	return reg, network, nil
}

// networkName returns the network name instances are recorded for.
func networkName(cfg config.Config) (string, error) {
	magic, err := neoclient.ParseChainID(cfg.Network.ChainID)
	if err != nil {
		return "", err
	}
	if magic == 0 {
		return "", nil
	}
	return magic.String(), nil
}

func listDeployments(ctx *cli.Context) error {
	reg, network, err := openRegistry(ctx)
	if err != nil {
		return options.Exit(err)
	}
	defer func() { _ = reg.Close() }()

	if ctx.Bool("all") {
		network = ""
	}
	var insts []registry.InstanceRecord
	if codeHash := ctx.String("code-hash"); codeHash != "" {
		if network == "" {
			return options.Exit(errors.New("code hash filter requires a network"))
		}
		insts, err = reg.Instances(network, codeHash)
	} else {
		insts, err = reg.AllInstances(network)
	}
	if err != nil {
		return options.Exit(err)
	}

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Network", "Address", "Label", "Code hash", "Deployed", "Tx"})
	table.SetAutoWrapText(false)
	for _, inst := range insts {
		table.Append([]string{
			inst.Network,
			inst.Address,
			inst.Label,
			inst.CodeHash,
			inst.Deployed.Format(time.RFC3339),
			inst.TxHash,
		})
	}
	table.Render()
	return nil
}

func forgetCode(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return options.Exit(errors.New("exactly one code hash expected"))
	}
	reg, network, err := openRegistry(ctx)
	if err != nil {
		return options.Exit(err)
	}
	defer func() { _ = reg.Close() }()
	if network == "" {
		return options.Exit(errors.New("no network chain id configured"))
	}

	codeHash := ctx.Args().First()
	n, err := reg.Forget(network, codeHash)
	if err != nil {
		return options.Exit(fmt.Errorf("can't forget %s: %w", codeHash, err))
	}
	options.Fprintf(ctx, "forgot code %s and %d instance(s)\n", codeHash, n)
	return nil
}
