package port

import (
	"context"
	"math/big"

	"position_resolver/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// BatchExecutor runs many independent read-only calls as chunked aggregate
// requests. Results are always index-aligned with the submitted calls.
type BatchExecutor interface {
	ExecuteBatch(ctx context.Context, conn Connection, calls []entity.Call, height *big.Int, chunkSize int) ([]entity.CallResult, error)
	ExecuteBatchWithRetry(ctx context.Context, conn Connection, calls []entity.Call, maxRetries int, height *big.Int, chunkSize int) ([]entity.CallResult, error)
}

// ItemScanner enumerates a registry by index until a terminal signal.
type ItemScanner interface {
	Scan(ctx context.Context, conn Connection, registry common.Address, height *big.Int, safetyCap int) ([]common.Address, error)
}

// PositionResolver is the single operation exposed to presentation layers.
type PositionResolver interface {
	// ResolvePositions discovers registry items on the network and returns the
	// owner's non-zero positions. height pins every read; nil means latest.
	ResolvePositions(ctx context.Context, owner string, network string, height *big.Int) (*entity.PositionReport, error)

	// Networks lists the networks the resolver can serve.
	Networks() []entity.NetworkDefinition

	// Health probes the head of every open connection.
	Health(ctx context.Context) []entity.NetworkHealth
}
