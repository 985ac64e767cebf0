package config

// Package config provides a reusable loader for the arbitrage engine's
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/synnergy-network/arb-engine/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for one engine process. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Chains []ChainConfig `mapstructure:"chains" json:"chains"`

	Registry struct {
		Path         string `mapstructure:"path" json:"path"`
		SeedDefaults bool   `mapstructure:"seed_defaults" json:"seed_defaults"`
	} `mapstructure:"registry" json:"registry"`

	Scanner struct {
		ParallelLimit    int `mapstructure:"parallel_limit" json:"parallel_limit"`
		MulticallBatch   int `mapstructure:"multicall_batch" json:"multicall_batch"`
		PoolCacheMinutes int `mapstructure:"pool_cache_minutes" json:"pool_cache_minutes"`
		CacheDir         string `mapstructure:"cache_dir" json:"cache_dir"`
	} `mapstructure:"scanner" json:"scanner"`

	PathFinder struct {
		MinHops  int `mapstructure:"min_hops" json:"min_hops"`
		MaxHops  int `mapstructure:"max_hops" json:"max_hops"`
		MaxPaths int `mapstructure:"max_paths" json:"max_paths"`
	} `mapstructure:"path_finder" json:"path_finder"`

	GasOracle struct {
		CacheSeconds  int     `mapstructure:"cache_seconds" json:"cache_seconds"`
		CeilingWei    string  `mapstructure:"ceiling_wei" json:"ceiling_wei"`
		MinConfidence float64 `mapstructure:"min_confidence" json:"min_confidence"`
	} `mapstructure:"gas_oracle" json:"gas_oracle"`

	Relays []RelayEntryConfig `mapstructure:"relays" json:"relays"`

	Execution struct {
		TradeSizeWei      string `mapstructure:"trade_size_wei" json:"trade_size_wei"`
		ProfitThresholdWei string `mapstructure:"profit_threshold_wei" json:"profit_threshold_wei"`
		SlippageBps       int    `mapstructure:"slippage_bps" json:"slippage_bps"`
	} `mapstructure:"execution" json:"execution"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// ChainConfig names one EVM-compatible chain the engine watches.
type ChainConfig struct {
	Name    string        `mapstructure:"name" json:"name"`
	ChainID uint64        `mapstructure:"chain_id" json:"chain_id"`
	RPCURL  string        `mapstructure:"rpc_url" json:"rpc_url"`
	WSURL   string        `mapstructure:"ws_url" json:"ws_url"` // optional; enables block-driven scan pacing over gorilla/websocket
	Tokens  []TokenConfig `mapstructure:"tokens" json:"tokens"`
}

// TokenConfig names one token the engine includes in path searches.
type TokenConfig struct {
	Address  string `mapstructure:"address" json:"address"`
	Decimals uint8  `mapstructure:"decimals" json:"decimals"`
	Symbol   string `mapstructure:"symbol" json:"symbol"`
}

// RelayEntryConfig configures one private-relay submission endpoint.
type RelayEntryConfig struct {
	Name      string `mapstructure:"name" json:"name"`
	Kind      string `mapstructure:"kind" json:"kind"`
	Endpoint  string `mapstructure:"endpoint" json:"endpoint"`
	Preferred bool   `mapstructure:"preferred" json:"preferred"`
	Priority  int    `mapstructure:"priority" json:"priority"`
	AuthKey   string `mapstructure:"auth_key" json:"auth_key"`
	Enabled   bool   `mapstructure:"enabled" json:"enabled"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SYNN_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SYNN_ENV", ""))
}
