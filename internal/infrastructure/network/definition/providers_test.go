package networkdefinition

import (
	"testing"

	"position_resolver/internal/config"
	"position_resolver/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

func TestProviderMergesConfiguredNetworks(t *testing.T) {
	registry := "0x00000000000000000000000000000000000000aa"
	p := NewNetworkDefinitionProvider(logger.NewNop(), []config.NetworkNode{
		{Identifier: "ethereum", Registry: registry},
		{Identifier: "polygon"}, // no registry, inactive
		{Identifier: "devnet", Endpoint: "http://127.0.0.1:8545", ChainID: 31337, Registry: registry},
	})

	defs := p.GetAllNetworkDefinitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 active networks, got %d: %+v", len(defs), defs)
	}

	eth, ok := p.GetNetworkDefinitionByName("Ethereum")
	if !ok {
		t.Fatal("expected ethereum to be active")
	}
	if eth.PrimaryRPCURL != Ethereum.PrimaryRPCURL {
		t.Fatalf("expected built-in endpoint to be inherited, got %q", eth.PrimaryRPCURL)
	}
	if eth.RegistryAddress != common.HexToAddress(registry) {
		t.Fatalf("unexpected registry %s", eth.RegistryAddress.Hex())
	}
	if eth.AggregatorAddress != Multicall3Address {
		t.Fatalf("expected multicall3 aggregator, got %s", eth.AggregatorAddress.Hex())
	}

	if _, ok := p.GetNetworkDefinitionByName("polygon"); ok {
		t.Fatal("polygon has no registry and must not be active")
	}

	devnet, ok := p.GetNetworkDefinitionByName("devnet")
	if !ok || devnet.ChainID != 31337 {
		t.Fatalf("expected devnet with chain id 31337, got %+v (found=%v)", devnet, ok)
	}
}

func TestBuiltinDefinitionsAreIndependentCopies(t *testing.T) {
	a := BuiltinDefinitions()
	eth := a["ethereum"]
	eth.FallbackRPCURLs[0] = "mutated"

	b := BuiltinDefinitions()
	if b["ethereum"].FallbackRPCURLs[0] == "mutated" {
		t.Fatal("built-in definitions share fallback slices")
	}
}
