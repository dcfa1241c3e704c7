package port

import (
	"context"
	"math/big"

	"position_resolver/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// Connection is one logical, read-only connection to a network endpoint.
// A Connection is safe for concurrent use by multiple resolution runs.
type Connection interface {
	// Call performs a single read against the state at height (nil means latest).
	Call(ctx context.Context, target common.Address, payload []byte, height *big.Int) ([]byte, error)

	// BlockNumber returns the current head height.
	BlockNumber(ctx context.Context) (uint64, error)

	// Definition returns the network definition associated with this connection.
	Definition() entity.NetworkDefinition

	// Close releases the underlying transport.
	Close()
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all supported network definitions as a slice.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByName returns a supported network definition by its identifier.
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)
}

// ConnectionProvider opens and memoizes one Connection per network.
type ConnectionProvider interface {
	// Connect returns the memoized connection for the network, creating and
	// probing it on first use. Failures are not memoized.
	Connect(ctx context.Context, networkDefinition entity.NetworkDefinition) (Connection, error)

	// Active returns the currently memoized connections ordered by network.
	Active() []Connection

	// Close tears down every memoized connection.
	Close()
}
