package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nspcc-dev/contract-harness/pkg/registry"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding configuration values.
const (
	EnvConfig         = "HARNESS_CONFIG"
	EnvContractPath   = "CONTRACT_PATH"
	EnvEndpoint       = "HARNESS_RPC_ENDPOINT"
	EnvChainID        = "HARNESS_CHAIN_ID"
	EnvWallet         = "HARNESS_WALLET"
	EnvWalletPassword = "HARNESS_WALLET_PASSWORD"
	EnvFaucetWIF      = "HARNESS_FAUCET_WIF"
)

// Version is the harness version, set at build time.
var Version string

// DefaultConfigPath is the default path to the config directory.
const DefaultConfigPath = "./config"

type (
	// Config is the top level harness configuration.
	Config struct {
		Network    Network                  `yaml:"Network"`
		Wallet     Wallet                   `yaml:"Wallet"`
		Faucet     Faucet                   `yaml:"Faucet"`
		Contract   Contract                 `yaml:"Contract"`
		Registry   registry.DBConfiguration `yaml:"Registry"`
		Logger     Logger                   `yaml:"Logger"`
		Prometheus BasicService             `yaml:"Prometheus"`
		Pprof      BasicService             `yaml:"Pprof"`
	}

	// Network describes the node to connect to.
	Network struct {
		Endpoint       string        `yaml:"Endpoint"`
		ChainID        string        `yaml:"ChainID"`
		DialTimeout    time.Duration `yaml:"DialTimeout"`
		RequestTimeout time.Duration `yaml:"RequestTimeout"`
	}

	// Wallet is a NEP-6 wallet reference with an optional account address
	// (default account is used if not specified).
	Wallet struct {
		Path     string `yaml:"Path"`
		Password string `yaml:"Password"`
		Address  string `yaml:"Address"`
	}

	// Faucet describes the account funding the sender.
	Faucet struct {
		Wallet Wallet `yaml:"Wallet"`
		// WIF is used when Wallet.Path is empty.
		WIF          string `yaml:"WIF"`
		TargetAmount int64  `yaml:"TargetAmount"`
	}

	// Contract describes the contract under test.
	Contract struct {
		Path         string `yaml:"Path"`
		Manifest     string `yaml:"Manifest"`
		LabelPrefix  string `yaml:"LabelPrefix"`
		InitialCount int64  `yaml:"InitialCount"`
		// GasScale converts gas limits to GAS fractions.
		GasScale int64 `yaml:"GasScale"`
	}

	// Logger contains logging settings.
	Logger struct {
		Level    string `yaml:"Level"`
		Path     string `yaml:"Path"`
		Encoding string `yaml:"Encoding"`
	}
)

// Default returns the default configuration.
func Default() Config {
	return Config{
		Network: Network{
			Endpoint:       "http://localhost:30333",
			ChainID:        "privnet",
			DialTimeout:    5 * time.Second,
			RequestTimeout: 20 * time.Second,
		},
		Faucet: Faucet{
			TargetAmount: 100_000_000,
		},
		Contract: Contract{
			LabelPrefix:  "My Counter",
			InitialCount: 4,
			GasScale:     100,
		},
		Registry: registry.DBConfiguration{
			Type: registry.BoltDB,
			BoltDBOptions: registry.BoltDBOptions{
				FilePath: "./.harness/registry.bolt",
			},
			LevelDBOptions: registry.LevelDBOptions{
				DataDirectoryPath: "./.harness/registry",
			},
		},
		Logger: Logger{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load loads the harness.<network>.yml config file from the given directory.
func Load(path string, network string) (Config, error) {
	return LoadFile(filepath.Join(path, fmt.Sprintf("harness.%s.yml", network)))
}

// LoadFile loads config from the provided path. Relative paths inside are
// resolved against the config file directory.
func LoadFile(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err = decoder.Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.resolvePaths(filepath.Dir(configPath))
	return cfg, nil
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{
		&c.Wallet.Path,
		&c.Faucet.Wallet.Path,
		&c.Contract.Path,
		&c.Contract.Manifest,
		&c.Registry.BoltDBOptions.FilePath,
		&c.Registry.LevelDBOptions.DataDirectoryPath,
		&c.Logger.Path,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// ApplyEnv overrides configuration values with the ones set in the
// environment.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for env, p := range map[string]*string{
		EnvContractPath:   &c.Contract.Path,
		EnvEndpoint:       &c.Network.Endpoint,
		EnvChainID:        &c.Network.ChainID,
		EnvWallet:         &c.Wallet.Path,
		EnvWalletPassword: &c.Wallet.Password,
		EnvFaucetWIF:      &c.Faucet.WIF,
	} {
		if v, ok := lookup(env); ok && v != "" {
			*p = v
		}
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch {
	case c.Network.Endpoint == "":
		return errors.New("no RPC endpoint specified")
	case c.Contract.Path == "":
		return fmt.Errorf("no contract path specified (set Contract.Path or %s)", EnvContractPath)
	case c.Contract.GasScale <= 0:
		return fmt.Errorf("invalid GasScale %d", c.Contract.GasScale)
	case c.Wallet.Path == "":
		return errors.New("no sender wallet specified")
	case c.Faucet.TargetAmount > 0 && c.Faucet.Wallet.Path == "" && c.Faucet.WIF == "":
		return errors.New("faucet account is not configured")
	}
	switch c.Registry.Type {
	case registry.BoltDB, registry.LevelDB, registry.InMemoryDB:
	default:
		return fmt.Errorf("unknown registry type %q", c.Registry.Type)
	}
	return nil
}
