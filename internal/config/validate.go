package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if err := validateSolidityVersion(cfg.Solidity.Version); err != nil {
		return err
	}
	if cfg.Solidity.Optimizer.Enabled && cfg.Solidity.Optimizer.Runs <= 0 {
		return newError("solidity.optimizer.runs", "must be > 0 when the optimizer is enabled", nil)
	}

	if _, ok := cfg.Networks[cfg.DefaultNetwork]; !ok {
		return newError("defaultNetwork", fmt.Sprintf("network %q is not configured", cfg.DefaultNetwork), nil)
	}
	for name, network := range cfg.Networks {
		if network.InMemory {
			continue
		}
		if err := validateNetwork(name, network); err != nil {
			return err
		}
	}

	if cfg.DevNet.Accounts < 0 {
		return newError("devnet.accounts", "must be >= 0", nil)
	}
	if cfg.DevNet.Seed == "" {
		return newError("devnet.seed", "cannot be empty", nil)
	}
	if cfg.RPC.Timeout < 0 {
		return newError("rpc.timeout", "must be >= 0", nil)
	}
	if cfg.RPC.RateLimitRPS < 0 || cfg.RPC.RateLimitBurst < 0 {
		return newError("rpc.rate_limit", "must be >= 0", nil)
	}
	if cfg.Node.Port < 0 || cfg.Node.Port > 65535 {
		return newError("node.port", fmt.Sprintf("%d is out of range", cfg.Node.Port), nil)
	}
	return nil
}

// validateSolidityVersion accepts plain MAJOR.MINOR.PATCH releases only;
// compiler builds are never addressed by prerelease or build tags.
func validateSolidityVersion(version string) error {
	v, err := semver.Parse(version)
	if err != nil {
		return newError("solidity.version", fmt.Sprintf("%q is not a MAJOR.MINOR.PATCH version", version), err)
	}
	if len(v.Pre) > 0 || len(v.Build) > 0 {
		return newError("solidity.version", fmt.Sprintf("%q must not carry prerelease or build metadata", version), nil)
	}
	return nil
}

func validateNetwork(name string, network Network) error {
	field := "networks." + name
	if network.URL == "" {
		return newError(field+".url", "cannot be empty", nil)
	}
	u, err := url.Parse(network.URL)
	if err != nil {
		return newError(field+".url", "cannot be parsed", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newError(field+".url", fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return newError(field+".url", "missing host", nil)
	}
	for i, key := range network.Accounts {
		if _, err := crypto.HexToECDSA(strings.TrimPrefix(key, "0x")); err != nil {
			return newError(fmt.Sprintf("%s.accounts[%d]", field, i), "invalid private key", err)
		}
	}
	return nil
}
