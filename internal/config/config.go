package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	RpcClient RpcClientConfig `yaml:"rpcClient"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Networks  []NetworkNode   `yaml:"networks"`
}

// ServerConfig holds the server-specific configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
}

// RpcClientConfig holds configuration for RPC clients.
type RpcClientConfig struct {
	DefaultTimeoutMs    int64   `yaml:"defaultTimeoutMs"`
	LivenessTimeoutMs   int64   `yaml:"livenessTimeoutMs"`
	RateLimit           float64 `yaml:"rateLimit"`
	BurstLimit          int     `yaml:"burstLimit"`
	MaxRetries          int     `yaml:"maxRetries"`
	RetryDelayMs        int64   `yaml:"retryDelayMs"`
	MaxIdleConnsPerHost int     `yaml:"maxIdleConnsPerHost"`
}

// ResolverConfig holds configuration for the resolution pipeline.
type ResolverConfig struct {
	MetadataItemsPerChunk int   `yaml:"metadataItemsPerChunk"`
	QuantityItemsPerChunk int   `yaml:"quantityItemsPerChunk"`
	MaxRetries            int   `yaml:"maxRetries"`
	RetryDelayMs          int64 `yaml:"retryDelayMs"`
	ScanSafetyCap         int   `yaml:"scanSafetyCap"`
	RunTimeoutSeconds     int   `yaml:"runTimeoutSeconds"`
	ChunkParallelism      int   `yaml:"chunkParallelism"`
}

// NetworkNode holds the configuration for a specific blockchain network node.
// Fields left empty inherit from the built-in definition with the same identifier.
type NetworkNode struct {
	Identifier      string   `yaml:"identifier"`
	Name            string   `yaml:"name"`
	ChainID         uint64   `yaml:"chainID"`
	Endpoint        string   `yaml:"endpoint"`
	FallbackRPCURLs []string `yaml:"fallbackEndpoints"`
	Registry        string   `yaml:"registry"`
	Aggregator      string   `yaml:"aggregator"`
}

// LivenessTimeout returns the connect-time probe timeout.
func (c RpcClientConfig) LivenessTimeout() time.Duration {
	return time.Duration(c.LivenessTimeoutMs) * time.Millisecond
}

// CallTimeout returns the per-request timeout.
func (c RpcClientConfig) CallTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

// RetryDelay returns the pause between client-level retries.
func (c RpcClientConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// RetryDelay returns the pause between per-call retry rounds.
func (c ResolverConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// RunTimeout returns the overall deadline for one resolution run.
func (c ResolverConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

// defaultResolverMaxRetries applies only when the key is absent; an explicit
// zero disables per-call retries.
const defaultResolverMaxRetries = 2

// newConfig returns the zero configuration seeded with defaults that a zero
// value in the file must be able to override.
func newConfig() Config {
	return Config{Resolver: ResolverConfig{MaxRetries: defaultResolverMaxRetries}}
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := newConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		logrus.Errorf("Invalid configuration in %s: %v", path, err)
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Debugf("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.RpcClient.DefaultTimeoutMs <= 0 {
		cfg.RpcClient.DefaultTimeoutMs = 15000
		logrus.Debugf("RpcClient.DefaultTimeoutMs not set, defaulting to %d ms", cfg.RpcClient.DefaultTimeoutMs)
	}
	if cfg.RpcClient.LivenessTimeoutMs <= 0 {
		cfg.RpcClient.LivenessTimeoutMs = 10000
		logrus.Debugf("RpcClient.LivenessTimeoutMs not set, defaulting to %d ms", cfg.RpcClient.LivenessTimeoutMs)
	}
	if cfg.RpcClient.MaxRetries < 0 {
		cfg.RpcClient.MaxRetries = 0
	}
	if cfg.RpcClient.RetryDelayMs <= 0 {
		cfg.RpcClient.RetryDelayMs = 250
	}
	if cfg.RpcClient.MaxIdleConnsPerHost <= 0 {
		cfg.RpcClient.MaxIdleConnsPerHost = 16
	}

	if cfg.Resolver.MetadataItemsPerChunk <= 0 {
		cfg.Resolver.MetadataItemsPerChunk = 10
		logrus.Debugf("Resolver.MetadataItemsPerChunk not set, defaulting to %d", cfg.Resolver.MetadataItemsPerChunk)
	}
	if cfg.Resolver.QuantityItemsPerChunk <= 0 {
		cfg.Resolver.QuantityItemsPerChunk = 20
		logrus.Debugf("Resolver.QuantityItemsPerChunk not set, defaulting to %d", cfg.Resolver.QuantityItemsPerChunk)
	}
	if cfg.Resolver.MaxRetries < 0 {
		cfg.Resolver.MaxRetries = 0
	}
	if cfg.Resolver.RetryDelayMs < 0 {
		cfg.Resolver.RetryDelayMs = 0
	}
	if cfg.Resolver.ScanSafetyCap <= 0 {
		cfg.Resolver.ScanSafetyCap = 1000
		logrus.Debugf("Resolver.ScanSafetyCap not set, defaulting to %d", cfg.Resolver.ScanSafetyCap)
	}
	if cfg.Resolver.RunTimeoutSeconds <= 0 {
		cfg.Resolver.RunTimeoutSeconds = 120
	}
	if cfg.Resolver.ChunkParallelism <= 0 {
		cfg.Resolver.ChunkParallelism = 1
	}

	for i := range cfg.Networks {
		cfg.Networks[i].Identifier = strings.ToLower(strings.TrimSpace(cfg.Networks[i].Identifier))
	}
}

// Validate checks network entries for malformed values.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Networks))
	for _, network := range c.Networks {
		if network.Identifier == "" {
			return fmt.Errorf("network entry %q has no identifier", network.Name)
		}
		if _, dup := seen[network.Identifier]; dup {
			return fmt.Errorf("network %q configured more than once", network.Identifier)
		}
		seen[network.Identifier] = struct{}{}

		if network.Registry != "" && !common.IsHexAddress(network.Registry) {
			return fmt.Errorf("network %q: registry %q is not a valid address", network.Identifier, network.Registry)
		}
		if network.Aggregator != "" && !common.IsHexAddress(network.Aggregator) {
			return fmt.Errorf("network %q: aggregator %q is not a valid address", network.Identifier, network.Aggregator)
		}
		if network.Registry == "" {
			logrus.Warnf("Network '%s' has no registry address configured; it will only be usable if a built-in definition provides one.", network.Identifier)
		}
	}
	return nil
}
