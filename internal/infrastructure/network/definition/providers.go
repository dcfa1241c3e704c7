package networkdefinition

import (
	"sort"
	"strings"

	"position_resolver/internal/app/port"
	"position_resolver/internal/config"
	"position_resolver/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// Multicall3Address is the canonical Multicall3 deployment, identical on every
// chain that has it.
var Multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Predefined network definitions. Registry addresses are deployment specific
// and always come from configuration.
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:           1,
		Name:              "Ethereum Mainnet",
		Identifier:        "ethereum",
		PrimaryRPCURL:     "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:   []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		AggregatorAddress: Multicall3Address,
		BlockExplorerURL:  "https://etherscan.io",
	}
	BSC = entity.NetworkDefinition{
		ChainID:           56,
		Name:              "BNB Smart Chain",
		Identifier:        "bsc",
		PrimaryRPCURL:     "https://1rpc.io/bnb",
		FallbackRPCURLs:   []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		AggregatorAddress: Multicall3Address,
		BlockExplorerURL:  "https://bscscan.com",
	}
	Polygon = entity.NetworkDefinition{
		ChainID:           137,
		Name:              "Polygon PoS",
		Identifier:        "polygon",
		PrimaryRPCURL:     "https://polygon-rpc.com/",
		FallbackRPCURLs:   []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		AggregatorAddress: Multicall3Address,
		BlockExplorerURL:  "https://polygonscan.com",
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:           42161,
		Name:              "Arbitrum One",
		Identifier:        "arbitrum",
		PrimaryRPCURL:     "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:   []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		AggregatorAddress: Multicall3Address,
		BlockExplorerURL:  "https://arbiscan.io",
	}
	Avalanche = entity.NetworkDefinition{
		ChainID:           43114,
		Name:              "Avalanche C-Chain",
		Identifier:        "avalanche",
		PrimaryRPCURL:     "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:   []string{"https://avalanche.public-rpc.com", "https://rpc.ankr.com/avalanche"},
		AggregatorAddress: Multicall3Address,
		BlockExplorerURL:  "https://snowtrace.io",
	}
	Base = entity.NetworkDefinition{
		ChainID:           8453,
		Name:              "Base Mainnet",
		Identifier:        "base",
		PrimaryRPCURL:     "https://1rpc.io/base",
		FallbackRPCURLs:   []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
		AggregatorAddress: Multicall3Address,
		BlockExplorerURL:  "https://basescan.org",
	}
	Gnosis = entity.NetworkDefinition{
		ChainID:           100,
		Name:              "Gnosis Chain",
		Identifier:        "gnosis",
		PrimaryRPCURL:     "https://rpc.ankr.com/gnosis",
		FallbackRPCURLs:   []string{"https://gnosis.publicnode.com"},
		AggregatorAddress: Multicall3Address,
		BlockExplorerURL:  "https://gnosisscan.io",
	}
)

// BuiltinDefinitions returns every predefined network keyed by identifier.
func BuiltinDefinitions() map[string]entity.NetworkDefinition {
	defs := []entity.NetworkDefinition{Ethereum, BSC, Polygon, Arbitrum, Avalanche, Base, Gnosis}
	out := make(map[string]entity.NetworkDefinition, len(defs))
	for _, def := range defs {
		def.FallbackRPCURLs = append([]string(nil), def.FallbackRPCURLs...)
		out[def.Identifier] = def
	}
	return out
}

// NetworkDefinitionProvider provides network definitions.
type NetworkDefinitionProvider struct {
	logger            port.Logger
	allNetworkDefs    map[string]entity.NetworkDefinition
	activeNetworkDefs []entity.NetworkDefinition
}

// NewNetworkDefinitionProvider merges the configured networks over the built-in
// definitions. Only configured networks that end up with an endpoint, a
// registry and an aggregator are active.
func NewNetworkDefinitionProvider(logger port.Logger, nodes []config.NetworkNode) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:         logger,
		allNetworkDefs: BuiltinDefinitions(),
	}

	for _, node := range nodes {
		identifier := strings.ToLower(strings.TrimSpace(node.Identifier))
		def, known := p.allNetworkDefs[identifier]
		if !known {
			def = entity.NetworkDefinition{Identifier: identifier, Name: identifier, AggregatorAddress: Multicall3Address}
		}
		mergeNode(&def, node)
		p.allNetworkDefs[identifier] = def

		if !def.Supported() {
			p.logger.Warn("Network configured but not usable: endpoint, registry and aggregator are all required.",
				"network", identifier, "rpc_primary", def.PrimaryRPCURL, "registry", def.RegistryAddress.Hex())
			continue
		}
		p.activeNetworkDefs = append(p.activeNetworkDefs, def)
		p.logger.Debug("Network activated", "network", def.Identifier, "chain_id", def.ChainID, "registry", def.RegistryAddress.Hex())
	}

	sort.Slice(p.activeNetworkDefs, func(i, j int) bool {
		return p.activeNetworkDefs[i].Identifier < p.activeNetworkDefs[j].Identifier
	})

	if len(p.activeNetworkDefs) == 0 {
		p.logger.Warn("No usable networks configured. Every resolution request will be rejected.")
	} else {
		p.logger.Info("NetworkDefinitionProvider initialized", "active_networks", len(p.activeNetworkDefs))
	}
	return p
}

func mergeNode(def *entity.NetworkDefinition, node config.NetworkNode) {
	if node.Name != "" {
		def.Name = node.Name
	}
	if node.ChainID != 0 {
		def.ChainID = node.ChainID
	}
	if node.Endpoint != "" {
		def.PrimaryRPCURL = node.Endpoint
	}
	if len(node.FallbackRPCURLs) > 0 {
		def.FallbackRPCURLs = append([]string(nil), node.FallbackRPCURLs...)
	}
	if node.Registry != "" {
		def.RegistryAddress = common.HexToAddress(node.Registry)
	}
	if node.Aggregator != "" {
		def.AggregatorAddress = common.HexToAddress(node.Aggregator)
	}
}

// GetAllNetworkDefinitions returns the list of active network definitions.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.activeNetworkDefs))
	copy(defsCopy, p.activeNetworkDefs)
	return defsCopy
}

// GetNetworkDefinitionByName returns a specific network definition by its identifier if it's active.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	for _, def := range p.activeNetworkDefs {
		if def.Identifier == identifier {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}
