package entity

import "github.com/ethereum/go-ethereum/common"

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID           uint64         `json:"chainId" yaml:"chainId"`
	Name              string         `json:"name" yaml:"name"`
	Identifier        string         `json:"identifier" yaml:"identifier"`
	PrimaryRPCURL     string         `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs   []string       `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	RegistryAddress   common.Address `json:"registryAddress" yaml:"registryAddress"`
	AggregatorAddress common.Address `json:"aggregatorAddress" yaml:"aggregatorAddress"`
	BlockExplorerURL  string         `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
}

// Supported reports whether the definition carries enough to run a resolution.
func (d NetworkDefinition) Supported() bool {
	return d.PrimaryRPCURL != "" && d.RegistryAddress != ZeroAddress && d.AggregatorAddress != ZeroAddress
}

// NetworkHealth is the result of probing one open connection for its head.
type NetworkHealth struct {
	Network string `json:"network"`
	Head    uint64 `json:"head,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Healthy reports whether the probe succeeded.
func (h NetworkHealth) Healthy() bool {
	return h.Error == ""
}

// RPCURLs returns the primary endpoint followed by the fallbacks.
func (d NetworkDefinition) RPCURLs() []string {
	urls := make([]string, 0, 1+len(d.FallbackRPCURLs))
	if d.PrimaryRPCURL != "" {
		urls = append(urls, d.PrimaryRPCURL)
	}
	return append(urls, d.FallbackRPCURLs...)
}
