/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeout is the default timeout for a single harness run.
const DefaultTimeout = 5 * time.Minute

// RPCEndpointFlag is a long flag name for an RPC endpoint. It can be used to
// check for flag presence in the context.
const RPCEndpointFlag = "rpc-endpoint"

// Network is a set of flags for choosing the network to operate on
// (privnet/mainnet/testnet).
var Network = []cli.Flag{
	cli.BoolFlag{Name: "privnet, p", Usage: "use private network configuration (if --config-file option is not specified)"},
	cli.BoolFlag{Name: "mainnet, m", Usage: "use mainnet network configuration (if --config-file option is not specified)"},
	cli.BoolFlag{Name: "testnet, t", Usage: "use testnet network configuration (if --config-file option is not specified)"},
}

// RPC is a set of flags used for RPC connections (endpoint and timeout).
var RPC = []cli.Flag{
	cli.StringFlag{
		Name:  RPCEndpointFlag + ", r",
		Usage: "RPC node address (overrides configuration)",
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Value: DefaultTimeout,
		Usage: "Timeout for the operation",
	},
}

// Config is a flag for commands that use harness configuration.
var Config = cli.StringFlag{
	Name:  "config-path",
	Usage: "path to directory with per-network configuration files (may be overridden by --config-file option for the configuration file)",
}

// ConfigFile is a flag for commands that use harness configuration and provide
// path to the specific config file instead of config path.
var ConfigFile = cli.StringFlag{
	Name:   "config-file",
	Usage:  "path to the harness configuration file (overrides --config-path option)",
	EnvVar: config.EnvConfig,
}

// Debug is a flag for commands that allow debug logging.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (overrides configuration)",
}

// WithCommon returns the given flags followed by the configuration, logging,
// network and RPC flags shared by all commands.
func WithCommon(flags ...cli.Flag) []cli.Flag {
	res := make([]cli.Flag, 0, len(flags)+3+len(Network)+len(RPC))
	res = append(res, flags...)
	res = append(res, Config, ConfigFile, Debug)
	res = append(res, Network...)
	return append(res, RPC...)
}

// GetNetwork examines Context's flags and returns the appropriate network
// name. It defaults to privnet if no flags are given.
func GetNetwork(ctx *cli.Context) string {
	var net = "privnet"
	if ctx.Bool("testnet") {
		net = "testnet"
	}
	if ctx.Bool("mainnet") {
		net = "mainnet"
	}
	return net
}

// GetTimeoutContext returns a context.Context with the default or a user-set timeout.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur == 0 {
		dur = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetConfigFromContext looks at the path and the mode flags in the given
// context and returns an appropriate config with environment and flag
// overrides applied.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	var (
		cfg        config.Config
		err        error
		configFile = ctx.String("config-file")
	)
	if len(configFile) != 0 {
		cfg, err = config.LoadFile(configFile)
	} else {
		var configPath = config.DefaultConfigPath
		if argCp := ctx.String("config-path"); argCp != "" {
			configPath = argCp
		}
		cfg, err = config.Load(configPath, GetNetwork(ctx))
	}
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	if endpoint := ctx.String(RPCEndpointFlag); endpoint != "" {
		cfg.Network.Endpoint = endpoint
	}
	return cfg, nil
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function creates a dir and a file for logging.
func HandleLoggingParams(debug bool, cfg config.Logger) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.Level) > 0 {
		level, err = zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	if len(cfg.Encoding) > 0 {
		switch cfg.Encoding {
		case "console", "json":
			cc.Encoding = cfg.Encoding
		default:
			return nil, nil, fmt.Errorf("log setting: unknown encoding %q", cfg.Encoding)
		}
	}
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	cc.ErrorOutputPaths = []string{"stderr"}
	cc.OutputPaths = []string{"stderr"}

	if logPath := cfg.Path; logPath != "" {
		if err := io.MakeDirForFile(logPath, "logger"); err != nil {
			return nil, nil, err
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}

// Exit returns an exit error with code 1 for the given error.
func Exit(err error) *cli.ExitError {
	return cli.NewExitError(err, 1)
}

// Fprintf writes to the context application writer ignoring errors.
func Fprintf(ctx *cli.Context, format string, args ...any) {
	w := ctx.App.Writer
	if w == nil {
		w = os.Stdout
	}
	_, _ = fmt.Fprintf(w, format, args...)
}
