package run

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/contract-harness/internal/fakechain"
	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/nspcc-dev/contract-harness/pkg/harness"
	"github.com/nspcc-dev/contract-harness/pkg/registry"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

const testConfig = `Network:
  Endpoint: http://localhost:30333
Wallet:
  Path: wallet.json
Faucet:
  TargetAmount: 0
Contract:
  Path: counter.nef
Registry:
  Type: inmemory
Logger:
  Level: warn
`

type executor struct {
	app *cli.App
	out *bytes.Buffer
	fc  *fakechain.FakeChain
	cfg string
}

func newExecutor(t *testing.T) *executor {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "harness.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))

	e := &executor{
		app: cli.NewApp(),
		out: bytes.NewBuffer(nil),
		fc:  fakechain.NewFakeChain("NfgHwwTi3wHAS8aFAN243C5vGbkYDpqLHP"),
		cfg: cfgPath,
	}
	e.app.Commands = NewCommands()
	e.app.Writer = e.out
	e.app.ErrWriter = e.out
	e.app.ExitErrHandler = func(*cli.Context, error) {}

	old := newSetup
	newSetup = func(cfg config.Config, _ *registry.Registry, log *zap.Logger) (*harness.Setup, error) {
		return &harness.Setup{
			Connector: e.fc,
			Funder:    e.fc,
			Resolver:  e.fc,
			CodePath:  cfg.Contract.Path,
			InitMsg:   []byte(`{"count": 4}`),
			Log:       log,
		}, nil
	}
	t.Cleanup(func() { newSetup = old })
	return e
}

func (e *executor) run(args ...string) error {
	return e.app.Run(append([]string{"harness", "run", "--config-file", e.cfg}, args...))
}

func TestRun(t *testing.T) {
	e := newExecutor(t)
	require.NoError(t, e.run())
	require.Contains(t, e.out.String(), "count on initialization")
	require.Contains(t, e.out.String(), "increment stress x10")
	require.NotContains(t, e.out.String(), "FAIL")
	require.EqualValues(t, 1, e.fc.Resolves.Load())
	require.EqualValues(t, 10, e.fc.Executes.Load())
}

func TestRunParallel(t *testing.T) {
	e := newExecutor(t)
	require.NoError(t, e.run("--parallel", "--stress", "3"))
	require.Contains(t, e.out.String(), "increment stress x3")
	require.EqualValues(t, 1, e.fc.Resolves.Load())
	require.EqualValues(t, 3, e.fc.Executes.Load())
}

func TestRunFailures(t *testing.T) {
	t.Run("setup failure", func(t *testing.T) {
		e := newExecutor(t)
		e.fc.FundF = func(int64) error { return errors.New("faucet is dry") }
		err := e.run()
		require.ErrorContains(t, err, "2 of 2 scenarios failed")
		require.Contains(t, e.out.String(), "failed at fund")
		// Every scenario retried the setup.
		require.EqualValues(t, 2, e.fc.Fundings.Load())
	})
	t.Run("bad stress", func(t *testing.T) {
		e := newExecutor(t)
		require.Error(t, e.run("--stress", "-1"))
	})
	t.Run("extra args", func(t *testing.T) {
		e := newExecutor(t)
		require.Error(t, e.run("now"))
	})
	t.Run("missing config", func(t *testing.T) {
		e := newExecutor(t)
		e.cfg = filepath.Join(t.TempDir(), "none.yml")
		require.Error(t, e.run())
	})
	t.Run("invalid config", func(t *testing.T) {
		e := newExecutor(t)
		require.NoError(t, os.WriteFile(e.cfg, []byte("Contract:\n  GasScale: 0\n"), 0o644))
		require.Error(t, e.run())
		require.Zero(t, e.fc.Connects.Load())
	})
}
