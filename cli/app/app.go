package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/contract-harness/cli/contract"
	"github.com/nspcc-dev/contract-harness/cli/deployments"
	"github.com/nspcc-dev/contract-harness/cli/run"
	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "Contract harness\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a harness instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "harness"
	ctl.Version = config.Version
	ctl.Usage = "Contract integration test harness for Neo networks"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, run.NewCommands()...)
	ctl.Commands = append(ctl.Commands, contract.NewCommands()...)
	ctl.Commands = append(ctl.Commands, deployments.NewCommands()...)
	return ctl
}
