// Package config holds the deployment addresses and planning constants the
// SDK is constructed with. Everything that looks like a magic number in the
// planner (precision boundary, flow sentinel, flat fee) lives here so tests
// and alternative deployments can substitute values.
package config

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Pathfinder PathfinderConfig `yaml:"pathfinder"`
	Chain      ChainConfig      `yaml:"chain"`
	Contracts  Contracts        `yaml:"contracts"`
	Planner    PlannerConfig    `yaml:"planner"`
}

// PathfinderConfig pathfinder service connection configuration
type PathfinderConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout returns the request timeout for pathfinder calls.
func (c PathfinderConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ChainConfig RPC connection configuration
type ChainConfig struct {
	RPCEndpoint string `yaml:"rpcEndpoint"`
	ChainID     int    `yaml:"chainId"`
}

// Contracts deployment addresses of the trust-network contracts
type Contracts struct {
	Hub       string `yaml:"hub"`       // settlement contract (ERC1155 hub)
	ERC20Lift string `yaml:"erc20Lift"` // wrapper deployment registry
}

// HubAddress returns the parsed hub address.
func (c Contracts) HubAddress() common.Address {
	return common.HexToAddress(c.Hub)
}

// LiftAddress returns the parsed wrapper registry address.
func (c Contracts) LiftAddress() common.Address {
	return common.HexToAddress(c.ERC20Lift)
}

// PlannerConfig planning constants injected into the Transfer Planner
type PlannerConfig struct {
	// PrecisionDigits is the number of trailing atto digits the pathfinder
	// ignores; amounts are truncated (or rounded up) to this boundary.
	PrecisionDigits int `yaml:"precisionDigits"`
	// TransferFeeAtto is a flat fee in atto-circles added on top of the
	// requested amount. Zero on current deployments.
	TransferFeeAtto string `yaml:"transferFeeAtto"`
}

// PrecisionFactor returns 10^PrecisionDigits as a big integer.
func (c PlannerConfig) PrecisionFactor() *big.Int {
	digits := c.PrecisionDigits
	if digits <= 0 {
		digits = 12
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
}

// TransferFee returns the flat fee in atto-circles, zero if unset or
// unparsable.
func (c PlannerConfig) TransferFee() *big.Int {
	fee, ok := new(big.Int).SetString(c.TransferFeeAtto, 10)
	if !ok || fee.Sign() < 0 {
		return new(big.Int)
	}
	return fee
}

// MaxFlow returns the largest amount a single flow edge can carry
// (uint192 max); transfers above it cannot settle on chain.
func (c PlannerConfig) MaxFlow() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 192)
	return max.Sub(max, big.NewInt(1))
}

// DefaultConfig returns the Gnosis Chain deployment.
func DefaultConfig() *Config {
	return &Config{
		Pathfinder: PathfinderConfig{
			URL:            "https://pathfinder.aboutcircles.com",
			TimeoutSeconds: 30,
		},
		Chain: ChainConfig{
			RPCEndpoint: "https://rpc.gnosischain.com",
			ChainID:     100,
		},
		Contracts: Contracts{
			Hub:       "0xc12C1E50ABB450d6205Ea2C3Fa861b3B834d13e8",
			ERC20Lift: "0x5F99a795dD2743C36D63511f0D4bc667e6d3cDB5",
		},
		Planner: PlannerConfig{
			PrecisionDigits: 12,
			TransferFeeAtto: "0",
		},
	}
}

// Load reads a YAML configuration file, applying defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Contracts.Hub == "" || !common.IsHexAddress(cfg.Contracts.Hub) {
		return nil, fmt.Errorf("invalid hub contract address: %q", cfg.Contracts.Hub)
	}
	return cfg, nil
}
