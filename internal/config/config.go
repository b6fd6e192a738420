package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DevNetwork is the reserved name of the in-memory development network.
	// It is always present in Config.Networks.
	DevNetwork = "devnet"
	// LocalhostNetwork points at a node running on the local machine.
	LocalhostNetwork = "localhost"

	defaultLocalhostURL    = "http://127.0.0.1:8545"
	defaultSolidityVersion = "0.6.12"
	defaultOptimizerRuns   = 200
	defaultDevChainID      = 31337
	defaultDevAccounts     = 20
	defaultDevSeed         = "test test test test test test test test test test test junk"
	defaultNodeHost        = "127.0.0.1"
	defaultNodePort        = 8545
)

// defaultDevBalance is 10000 ether expressed in wei.
var defaultDevBalance = new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1_000_000_000_000_000_000))

// Config is the resolved build configuration. It is built once by Load and
// treated as read-only afterwards; consumers receive it by parameter.
type Config struct {
	DefaultNetwork string             `yaml:"defaultNetwork"`
	Networks       map[string]Network `yaml:"networks"`
	Solidity       Solidity           `yaml:"solidity"`
	Etherscan      Etherscan          `yaml:"etherscan"`
	Paths          Paths              `yaml:"paths"`
	DevNet         DevNet             `yaml:"devnet"`
	RPC            RPC                `yaml:"rpc"`
	Node           Node               `yaml:"node"`
}

// Network describes how to reach a chain.
type Network struct {
	URL      string        `yaml:"url,omitempty"`
	ChainID  uint64        `yaml:"chainId,omitempty"`
	Accounts []string      `yaml:"accounts,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	InMemory bool          `yaml:"inMemory,omitempty"`
}

// Solidity holds compiler settings handed to the compiler integration.
type Solidity struct {
	Version   string    `yaml:"version"`
	Optimizer Optimizer `yaml:"optimizer"`
}

// Optimizer holds the solc optimizer settings. Runs is ignored when disabled.
type Optimizer struct {
	Enabled bool `yaml:"enabled"`
	Runs    int  `yaml:"runs"`
}

// Etherscan carries the verification service credentials.
type Etherscan struct {
	APIKey string `yaml:"apiKey"`
}

// Enabled reports whether contract verification can be used.
func (e Etherscan) Enabled() bool {
	return e.APIKey != ""
}

// Paths lists the project directories. All entries are absolute.
type Paths struct {
	Root      string `yaml:"root"`
	Sources   string `yaml:"sources"`
	Tests     string `yaml:"tests"`
	Cache     string `yaml:"cache"`
	Artifacts string `yaml:"artifacts"`
}

// DevNet parameterizes the in-memory development chain.
type DevNet struct {
	ChainID  uint64   `yaml:"chainId"`
	Accounts int      `yaml:"accounts"`
	Seed     string   `yaml:"seed"`
	Balance  *big.Int `yaml:"balance"`
}

// RPC configures the outbound JSON-RPC client used for remote networks.
type RPC struct {
	Timeout        time.Duration `yaml:"timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
}

// Node configures the development JSON-RPC server.
type Node struct {
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"rate_limit_rps"`
	RateLimitBurst       int           `yaml:"rate_limit_burst"`
	AllowedOrigins       []string      `yaml:"allowed_origins"`
}

// CLIOverrides holds command-line flag overrides. Nil pointers leave the
// lower layers untouched.
type CLIOverrides struct {
	ConfigFile       string
	EnvFile          string
	Network          *string
	SolidityVersion  *string
	OptimizerEnabled *bool
}

// Load resolves the configuration from multiple sources with precedence:
// CLI flags > environment variables (including .env) > YAML config > defaults.
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	root, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("resolve working directory: %w", err)
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, newError("file", err.Error(), err)
		}
		if abs, err := filepath.Abs(overrides.ConfigFile); err == nil {
			root = filepath.Dir(abs)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, err
		}
	}

	if overrides != nil && overrides.EnvFile != "" {
		if err := loadDotEnv(overrides.EnvFile); err != nil {
			return Config{}, newError("env-file", err.Error(), err)
		}
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	cfg.Paths = resolvePaths(root, cfg.Paths)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the configuration produced by Load when no file,
// environment variable or flag is set, rooted at root.
func Default(root string) Config {
	cfg := defaultConfig()
	cfg.Paths = resolvePaths(root, cfg.Paths)
	return cfg
}

// defaultConfig returns a Config with default values and relative paths.
func defaultConfig() Config {
	return Config{
		DefaultNetwork: DevNetwork,
		Networks: map[string]Network{
			DevNetwork:       {ChainID: defaultDevChainID, InMemory: true},
			LocalhostNetwork: {URL: defaultLocalhostURL},
		},
		Solidity: Solidity{
			Version: defaultSolidityVersion,
			Optimizer: Optimizer{
				Enabled: true,
				Runs:    defaultOptimizerRuns,
			},
		},
		Paths: Paths{
			Sources:   "contracts",
			Tests:     "test",
			Cache:     filepath.Join("build", "cache"),
			Artifacts: filepath.Join("build", "artifacts"),
		},
		DevNet: DevNet{
			ChainID:  defaultDevChainID,
			Accounts: defaultDevAccounts,
			Seed:     defaultDevSeed,
			Balance:  new(big.Int).Set(defaultDevBalance),
		},
		RPC: RPC{
			Timeout: 20 * time.Second,
		},
		Node: Node{
			Host:                 defaultNodeHost,
			Port:                 defaultNodePort,
			ShutdownGracePeriod:  10 * time.Second,
			ReadHeaderTimeout:    5 * time.Second,
			WriteTimeout:         15 * time.Second,
			IdleTimeout:          60 * time.Second,
			EnableRequestLogging: true,
			AllowedOrigins:       []string{"*"},
		},
	}
}

// NetworkNames returns the configured network names in lexical order.
func (c Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Redacted returns a copy safe to print: the API key, private keys and URL
// credentials are masked.
func (c Config) Redacted() Config {
	out := c
	if out.Etherscan.APIKey != "" {
		out.Etherscan.APIKey = redactedValue
	}
	out.Networks = make(map[string]Network, len(c.Networks))
	for name, network := range c.Networks {
		network.URL = redactURL(network.URL)
		if len(network.Accounts) > 0 {
			masked := make([]string, len(network.Accounts))
			for i := range masked {
				masked[i] = redactedValue
			}
			network.Accounts = masked
		}
		out.Networks[name] = network
	}
	return out
}

// YAML renders the configuration as a YAML document.
func (c Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func resolvePaths(root string, paths Paths) Paths {
	if paths.Root != "" {
		if filepath.IsAbs(paths.Root) {
			root = paths.Root
		} else {
			root = filepath.Join(root, paths.Root)
		}
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(root, p)
	}
	return Paths{
		Root:      filepath.Clean(root),
		Sources:   resolve(paths.Sources),
		Tests:     resolve(paths.Tests),
		Cache:     resolve(paths.Cache),
		Artifacts: resolve(paths.Artifacts),
	}
}

func cloneNetworks(src map[string]Network) map[string]Network {
	out := make(map[string]Network, len(src))
	for name, network := range src {
		if len(network.Accounts) > 0 {
			network.Accounts = append([]string(nil), network.Accounts...)
		}
		out[name] = network
	}
	return out
}

func normalizeNetworkName(name string) string {
	return strings.TrimSpace(name)
}
