package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	JWTToken      string `mapstructure:"jwt_token"`
	BaseURL       string `mapstructure:"base_url"`
	WalletAddress string `mapstructure:"wallet_address"`

	// RateThresholdPercent is the quote drift accepted without asking
	RateThresholdPercent float64 `mapstructure:"rate_threshold_percent"`
	// Slippage is a fraction, 0.01 == 1%
	Slippage     float64       `mapstructure:"slippage"`
	PollInterval time.Duration `mapstructure:"poll_interval"`

	Retry   RetryConfig   `mapstructure:"retry"`
	State   StateConfig   `mapstructure:"state"`
	History HistoryConfig `mapstructure:"history"`
	Wallet  WalletConfig  `mapstructure:"wallet"`
	Log     LogConfig     `mapstructure:"log"`
	Chains  []ChainConfig `mapstructure:"chains"`

	MetricsAddr string `mapstructure:"metrics_addr"`
}

// RetryConfig bounds automatic retries of transient failures
type RetryConfig struct {
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// StateConfig selects the execution snapshot backend
type StateConfig struct {
	Backend       string        `mapstructure:"backend"` // file, bolt or redis
	Path          string        `mapstructure:"path"`
	RedisURL      string        `mapstructure:"redis_url"`
	RedisPassword string        `mapstructure:"redis_password"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// HistoryConfig selects the transaction history backend
type HistoryConfig struct {
	Backend     string `mapstructure:"backend"` // file, memory or postgres
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"database_url"`
}

// WalletConfig holds signing configuration per chain family
type WalletConfig struct {
	EVM    EVMConfig    `mapstructure:"evm"`
	Solana SolanaConfig `mapstructure:"solana"`
}

// EVMConfig holds all EVM networks keyed by internal chain key
type EVMConfig struct {
	Networks map[string]EVMNetwork `mapstructure:"networks"`
}

// EVMNetwork is one EVM chain's RPC and signer
type EVMNetwork struct {
	RPCUrl     string  `mapstructure:"rpc_url"`
	PrivateKey string  `mapstructure:"private_key"`
	ChainID    int64   `mapstructure:"chain_id"`
	GasLimit   *uint64 `mapstructure:"gas_limit"`
	GasPrice   *int64  `mapstructure:"gas_price"`
}

// SolanaConfig is the Solana RPC and signer
type SolanaConfig struct {
	RPCUrl        string `mapstructure:"rpc_url"`
	PrivateKey    string `mapstructure:"private_key"`
	Commitment    string `mapstructure:"commitment"`
	SkipPreflight bool   `mapstructure:"skip_preflight"`
}

// LogConfig controls the CLI logger
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ChainConfig overrides or extends the built-in chain table
type ChainConfig struct {
	Key           string `mapstructure:"key"`
	ProviderID    int64  `mapstructure:"provider_id"`
	Blockchain    string `mapstructure:"blockchain"`
	Name          string `mapstructure:"name"`
	Kind          string `mapstructure:"kind"`
	NativeAddress string `mapstructure:"native_address"`
}

var globalConfig *Config

func setDefaults(v *viper.Viper) {
	// keys without a real default still need registering so Unmarshal sees env overrides
	for _, key := range []string{
		"jwt_token", "wallet_address", "metrics_addr", "state.path",
		"state.redis_url", "state.redis_password", "history.path", "history.database_url",
		"wallet.solana.rpc_url", "wallet.solana.private_key",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("base_url", "https://1click.chaindefuser.com")
	v.SetDefault("rate_threshold_percent", 5.0)
	v.SetDefault("slippage", 0.01)
	v.SetDefault("poll_interval", 10*time.Second)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_delay", 30*time.Second)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("state.backend", "bolt")
	v.SetDefault("state.ttl", 7*24*time.Hour)
	v.SetDefault("history.backend", "file")
	v.SetDefault("wallet.solana.commitment", "confirmed")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from environment variables and the config file.
// configFile overrides the default search path when set.
func Load(configFile string) (*Config, error) {
	v := viper.GetViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".cross-swap")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// CROSS_SWAP_STATE_BACKEND -> state.backend
	v.SetEnvPrefix("CROSS_SWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside execution
func (c *Config) Validate() error {
	switch c.State.Backend {
	case "file", "bolt", "redis":
	default:
		return fmt.Errorf("unknown state backend %q (expected file, bolt or redis)", c.State.Backend)
	}
	if c.State.Backend == "redis" && c.State.RedisURL == "" {
		return fmt.Errorf("state.redis_url is required for the redis backend")
	}
	switch c.History.Backend {
	case "file", "memory", "postgres":
	default:
		return fmt.Errorf("unknown history backend %q (expected file, memory or postgres)", c.History.Backend)
	}
	if c.History.Backend == "postgres" && c.History.DatabaseURL == "" {
		return fmt.Errorf("history.database_url is required for the postgres backend")
	}
	if c.RateThresholdPercent < 0 {
		return fmt.Errorf("rate_threshold_percent must not be negative")
	}
	if c.Slippage < 0 || c.Slippage >= 1 {
		return fmt.Errorf("slippage must be a fraction between 0 and 1")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}

// RequireAPI checks the settings needed to talk to the routing provider
func (c *Config) RequireAPI() error {
	if c.JWTToken == "" {
		return fmt.Errorf("JWT token not found. Please set CROSS_SWAP_JWT_TOKEN environment variable or create a .cross-swap.yaml config file")
	}
	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
