package service

import (
	"context"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"position_resolver/internal/app/port"
	"position_resolver/internal/config"
	"position_resolver/internal/domain/entity"
	"position_resolver/internal/infrastructure/multicall"
	"position_resolver/internal/pkg/logger"
	"position_resolver/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

var bigIntComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

type staticNetworks struct {
	defs []entity.NetworkDefinition
}

func (n staticNetworks) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	return n.defs
}

func (n staticNetworks) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	for _, def := range n.defs {
		if def.Identifier == strings.ToLower(identifier) {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

type chainProvider struct {
	chain    *testutil.Chain
	connects int32
}

func (p *chainProvider) Connect(_ context.Context, _ entity.NetworkDefinition) (port.Connection, error) {
	atomic.AddInt32(&p.connects, 1)
	return p.chain, nil
}

func (p *chainProvider) Active() []port.Connection {
	if atomic.LoadInt32(&p.connects) == 0 {
		return nil
	}
	return []port.Connection{p.chain}
}

func (p *chainProvider) Close() {}

func testResolverConfig() config.ResolverConfig {
	return config.ResolverConfig{
		MetadataItemsPerChunk: 10,
		QuantityItemsPerChunk: 20,
		MaxRetries:            2,
		ScanSafetyCap:         1000,
		RunTimeoutSeconds:     30,
		ChunkParallelism:      1,
	}
}

func newTestService(chain *testutil.Chain) (*PositionService, *chainProvider) {
	provider := &chainProvider{chain: chain}
	l := logger.NewNop()
	svc := NewPositionService(
		staticNetworks{defs: []entity.NetworkDefinition{chain.Definition()}},
		provider,
		NewRegistryScanner(l),
		multicall.NewExecutor(l, 1, 0),
		l,
		testResolverConfig(),
	)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return fixed }
	return svc, provider
}
