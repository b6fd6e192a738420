package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const redactedValue = "<redacted>"

// yamlConfig represents the YAML configuration file structure. Pointers mark
// values the file may leave unspecified.
type yamlConfig struct {
	DefaultNetwork string                 `yaml:"defaultNetwork"`
	Networks       map[string]yamlNetwork `yaml:"networks"`
	Solidity       yamlSolidity           `yaml:"solidity"`
	Etherscan      yamlEtherscan          `yaml:"etherscan"`
	Paths          yamlPaths              `yaml:"paths"`
	DevNet         yamlDevNet             `yaml:"devnet"`
	RPC            yamlRPC                `yaml:"rpc"`
	Node           yamlNode               `yaml:"node"`
}

type yamlNetwork struct {
	URL      string   `yaml:"url"`
	ChainID  uint64   `yaml:"chainId"`
	Accounts []string `yaml:"accounts"`
	Timeout  string   `yaml:"timeout"`
}

type yamlSolidity struct {
	Version   string        `yaml:"version"`
	Optimizer yamlOptimizer `yaml:"optimizer"`
}

type yamlOptimizer struct {
	Enabled *bool `yaml:"enabled"`
	Runs    *int  `yaml:"runs"`
}

type yamlEtherscan struct {
	APIKey string `yaml:"apiKey"`
}

type yamlPaths struct {
	Root      string `yaml:"root"`
	Sources   string `yaml:"sources"`
	Tests     string `yaml:"tests"`
	Cache     string `yaml:"cache"`
	Artifacts string `yaml:"artifacts"`
}

type yamlDevNet struct {
	ChainID  uint64 `yaml:"chainId"`
	Accounts *int   `yaml:"accounts"`
	Seed     string `yaml:"seed"`
	Balance  string `yaml:"balance"`
}

type yamlRPC struct {
	Timeout   string        `yaml:"timeout"`
	RateLimit yamlRateLimit `yaml:"rate_limit"`
}

type yamlNode struct {
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	AllowedOrigins       []string      `yaml:"allowed_origins"`
}

// yamlRateLimit represents a rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// envConfig lists the environment variables consulted by Load. Unset
// variables leave their pointer nil.
type envConfig struct {
	EtherscanAPIKey  *string `envconfig:"ETHERSCAN_API"`
	DefaultNetwork   *string `envconfig:"CHAINBUILD_NETWORK"`
	SolidityVersion  *string `envconfig:"CHAINBUILD_SOLC_VERSION"`
	OptimizerEnabled *string `envconfig:"CHAINBUILD_OPTIMIZER"`
	LocalhostURL     *string `envconfig:"CHAINBUILD_LOCALHOST_URL"`
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// loadDotEnv exports the variables of a .env file into the process
// environment. Variables that are already set keep their value and a missing
// file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.DefaultNetwork != "" {
		cfg.DefaultNetwork = normalizeNetworkName(yamlCfg.DefaultNetwork)
	}

	if len(yamlCfg.Networks) > 0 {
		networks := cloneNetworks(cfg.Networks)
		for name, yn := range yamlCfg.Networks {
			name = normalizeNetworkName(name)
			if name == DevNetwork {
				return newError("networks."+name, "name is reserved for the in-memory network", nil)
			}
			network := networks[name]
			if yn.URL != "" {
				network.URL = yn.URL
			}
			if yn.ChainID != 0 {
				network.ChainID = yn.ChainID
			}
			if yn.Accounts != nil {
				network.Accounts = yn.Accounts
			}
			if yn.Timeout != "" {
				d, err := time.ParseDuration(yn.Timeout)
				if err != nil {
					return newError("networks."+name+".timeout", "invalid duration", err)
				}
				network.Timeout = d
			}
			networks[name] = network
		}
		cfg.Networks = networks
	}

	if yamlCfg.Solidity.Version != "" {
		cfg.Solidity.Version = yamlCfg.Solidity.Version
	}
	if enabled := yamlCfg.Solidity.Optimizer.Enabled; enabled != nil {
		cfg.Solidity.Optimizer.Enabled = *enabled
	}
	if runs := yamlCfg.Solidity.Optimizer.Runs; runs != nil {
		cfg.Solidity.Optimizer.Runs = *runs
	}

	if yamlCfg.Etherscan.APIKey != "" {
		cfg.Etherscan.APIKey = yamlCfg.Etherscan.APIKey
	}

	applyYAMLPaths(&cfg.Paths, yamlCfg.Paths)

	if err := applyYAMLDevNet(&cfg.DevNet, yamlCfg.DevNet); err != nil {
		return err
	}
	if yamlCfg.DevNet.ChainID != 0 {
		dev := cfg.Networks[DevNetwork]
		dev.ChainID = yamlCfg.DevNet.ChainID
		networks := cloneNetworks(cfg.Networks)
		networks[DevNetwork] = dev
		cfg.Networks = networks
	}

	if yamlCfg.RPC.Timeout != "" {
		d, err := time.ParseDuration(yamlCfg.RPC.Timeout)
		if err != nil {
			return newError("rpc.timeout", "invalid duration", err)
		}
		cfg.RPC.Timeout = d
	}
	if yamlCfg.RPC.RateLimit.RPS > 0 {
		cfg.RPC.RateLimitRPS = yamlCfg.RPC.RateLimit.RPS
	}
	if yamlCfg.RPC.RateLimit.Burst > 0 {
		cfg.RPC.RateLimitBurst = yamlCfg.RPC.RateLimit.Burst
	}

	return applyYAMLNode(&cfg.Node, yamlCfg.Node)
}

func applyYAMLPaths(paths *Paths, yp yamlPaths) {
	if yp.Root != "" {
		paths.Root = yp.Root
	}
	if yp.Sources != "" {
		paths.Sources = yp.Sources
	}
	if yp.Tests != "" {
		paths.Tests = yp.Tests
	}
	if yp.Cache != "" {
		paths.Cache = yp.Cache
	}
	if yp.Artifacts != "" {
		paths.Artifacts = yp.Artifacts
	}
}

func applyYAMLDevNet(dev *DevNet, yd yamlDevNet) error {
	if yd.ChainID != 0 {
		dev.ChainID = yd.ChainID
	}
	if yd.Accounts != nil {
		dev.Accounts = *yd.Accounts
	}
	if yd.Seed != "" {
		dev.Seed = yd.Seed
	}
	if yd.Balance != "" {
		balance, ok := new(big.Int).SetString(yd.Balance, 10)
		if !ok || balance.Sign() < 0 {
			return newError("devnet.balance", fmt.Sprintf("invalid wei amount %q", yd.Balance), nil)
		}
		dev.Balance = balance
	}
	return nil
}

func applyYAMLNode(node *Node, yn yamlNode) error {
	if yn.Host != "" {
		node.Host = yn.Host
	}
	if yn.Port != 0 {
		node.Port = yn.Port
	}

	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"node.shutdown_grace_period", yn.ShutdownGracePeriod, &node.ShutdownGracePeriod},
		{"node.read_header_timeout", yn.ReadHeaderTimeout, &node.ReadHeaderTimeout},
		{"node.write_timeout", yn.WriteTimeout, &node.WriteTimeout},
		{"node.idle_timeout", yn.IdleTimeout, &node.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return newError(d.field, "invalid duration", err)
		}
		*d.dst = parsed
	}

	if yn.EnableRequestLogging != nil {
		node.EnableRequestLogging = *yn.EnableRequestLogging
	}
	if yn.RateLimit.RPS > 0 {
		node.RateLimitRPS = yn.RateLimit.RPS
	}
	if yn.RateLimit.Burst > 0 {
		node.RateLimitBurst = yn.RateLimit.Burst
	}
	if len(yn.AllowedOrigins) > 0 {
		node.AllowedOrigins = yn.AllowedOrigins
	}
	return nil
}

// applyEnvConfig applies environment variable configuration. The API key is
// copied verbatim.
func applyEnvConfig(cfg *Config) error {
	var env envConfig
	if err := envconfig.Process("", &env); err != nil {
		return newError("environment", err.Error(), err)
	}

	if env.EtherscanAPIKey != nil {
		cfg.Etherscan.APIKey = *env.EtherscanAPIKey
	}
	if env.DefaultNetwork != nil && normalizeNetworkName(*env.DefaultNetwork) != "" {
		cfg.DefaultNetwork = normalizeNetworkName(*env.DefaultNetwork)
	}
	if env.SolidityVersion != nil && *env.SolidityVersion != "" {
		cfg.Solidity.Version = *env.SolidityVersion
	}
	if env.OptimizerEnabled != nil && strings.TrimSpace(*env.OptimizerEnabled) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(*env.OptimizerEnabled))
		if err != nil {
			return newError("CHAINBUILD_OPTIMIZER", fmt.Sprintf("%q is not a boolean", *env.OptimizerEnabled), err)
		}
		cfg.Solidity.Optimizer.Enabled = enabled
	}
	if env.LocalhostURL != nil && *env.LocalhostURL != "" {
		networks := cloneNetworks(cfg.Networks)
		localhost := networks[LocalhostNetwork]
		localhost.URL = *env.LocalhostURL
		networks[LocalhostNetwork] = localhost
		cfg.Networks = networks
	}
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Network != nil && normalizeNetworkName(*overrides.Network) != "" {
		cfg.DefaultNetwork = normalizeNetworkName(*overrides.Network)
	}
	if overrides.SolidityVersion != nil && *overrides.SolidityVersion != "" {
		cfg.Solidity.Version = *overrides.SolidityVersion
	}
	if overrides.OptimizerEnabled != nil {
		cfg.Solidity.Optimizer.Enabled = *overrides.OptimizerEnabled
	}
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redactedValue
	}
	return u.Redacted()
}
