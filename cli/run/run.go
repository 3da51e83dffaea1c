package run

import (
	"errors"
	"fmt"
	"time"

	"github.com/nspcc-dev/contract-harness/cli/options"
	"github.com/nspcc-dev/contract-harness/pkg/counter"
	"github.com/nspcc-dev/contract-harness/pkg/harness"
	"github.com/nspcc-dev/contract-harness/pkg/registry"
	"github.com/nspcc-dev/contract-harness/pkg/scenario"
	"github.com/nspcc-dev/contract-harness/pkg/services/metrics"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

// newSetup is replaced in tests.
var newSetup = scenario.NewSetup

// NewCommands returns 'run' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:      "run",
		Usage:     "Run counter contract scenarios through a shared session",
		UsageText: "harness run [--config-file file] [--stress N] [--parallel] [--debug]",
		Action:    runScenarios,
		Flags: options.WithCommon(
			cli.IntFlag{
				Name:  "stress",
				Value: counter.DefaultStressLoad,
				Usage: "number of sequential increments in the stress scenario",
			},
			cli.BoolFlag{
				Name:  "parallel",
				Usage: "run scenarios concurrently (they still share one setup)",
			},
		),
	}}
}

func runScenarios(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return options.Exit(fmt.Errorf("unexpected arguments: %v", ctx.Args()))
	}
	stress := ctx.Int("stress")
	if stress < 0 {
		return options.Exit(fmt.Errorf("invalid stress load %d", stress))
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return options.Exit(err)
	}
	if err := cfg.Validate(); err != nil {
		return options.Exit(err)
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.Logger)
	if err != nil {
		return options.Exit(err)
	}
	defer func() { _ = log.Sync() }()

	prometheus := metrics.NewPrometheusService(cfg.Prometheus, log)
	if err := prometheus.Start(); err != nil {
		return options.Exit(fmt.Errorf("failed to start Prometheus service: %w", err))
	}
	defer prometheus.ShutDown()
	pprof := metrics.NewPprofService(cfg.Pprof, log)
	if err := pprof.Start(); err != nil {
		return options.Exit(fmt.Errorf("failed to start Pprof service: %w", err))
	}
	defer pprof.ShutDown()

	reg, err := registry.Open(cfg.Registry)
	if err != nil {
		return options.Exit(fmt.Errorf("can't open registry: %w", err))
	}
	defer func() { _ = reg.Close() }()

	setup, err := newSetup(cfg, reg, log)
	if err != nil {
		return options.Exit(err)
	}
	sess := harness.NewSession(setup.Run, log)
	defer sess.Close()
	suite := scenario.Default(cfg.Contract.InitialCount, stress)

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	results := make([]scenario.Result, len(suite))
	if ctx.Bool("parallel") {
		var g errgroup.Group
		for i := range suite {
			i := i
			g.Go(func() error {
				results[i] = scenario.Execute(gctx, sess, suite[i], log)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range suite {
			results[i] = scenario.Execute(gctx, sess, suite[i], log)
		}
	}

	var failed int
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Scenario", "Result", "Setup", "Time", "Error"})
	table.SetAutoWrapText(false)
	for _, r := range results {
		verdict, errText := "PASS", ""
		if !r.Passed() {
			failed++
			verdict, errText = "FAIL", r.Err.Error()
		}
		setupStatus := r.Status.String()
		var se *harness.SetupError
		if errors.As(r.Err, &se) {
			setupStatus = "failed at " + string(se.Stage)
		}
		table.Append([]string{r.Name, verdict, setupStatus, r.Duration.Round(time.Millisecond).String(), errText})
	}
	table.Render()

	if failed != 0 {
		return options.Exit(fmt.Errorf("%d of %d scenarios failed", failed, len(results)))
	}
	return nil
}
