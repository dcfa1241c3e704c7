package client

import (
	"context"
	"fmt"
	"sort"

	"position_resolver/internal/app/port"
	"position_resolver/internal/domain/entity"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type dialFunc func(ctx context.Context, netDef entity.NetworkDefinition, opts Options) (port.Connection, error)

func dialEVM(ctx context.Context, netDef entity.NetworkDefinition, opts Options) (port.Connection, error) {
	return NewEVMClient(ctx, netDef, opts)
}

// evmClientProvider implements the port.ConnectionProvider interface.
// Connections live in a non-expiring cache until Close; concurrent first use of
// a network is collapsed into a single dial.
type evmClientProvider struct {
	clients *cache.Cache
	group   singleflight.Group
	logger  port.Logger
	opts    Options
	dial    dialFunc
}

// NewEVMClientProvider creates a new EVMClientProvider.
func NewEVMClientProvider(opts Options, logger port.Logger) port.ConnectionProvider {
	return &evmClientProvider{
		clients: cache.New(cache.NoExpiration, 0),
		logger:  logger,
		opts:    opts,
		dial:    dialEVM,
	}
}

// Connect retrieves the connection for the given network, creating and
// probing it on first use. A failed attempt is not memoized.
func (p *evmClientProvider) Connect(ctx context.Context, netDef entity.NetworkDefinition) (port.Connection, error) {
	clientKey := netDef.Identifier
	if conn, found := p.clients.Get(clientKey); found {
		p.logger.Debug("Returning cached EVM client", "network", clientKey)
		return conn.(port.Connection), nil
	}

	// Shared by all waiters, so detached from the first caller's cancellation.
	// NewEVMClient bounds each endpoint by the liveness timeout.
	dialCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(clientKey, func() (interface{}, error) {
		if conn, found := p.clients.Get(clientKey); found {
			return conn, nil
		}

		p.logger.Info("Creating new EVM client", "network", clientKey, "rpc_primary", netDef.PrimaryRPCURL)
		conn, err := p.dial(dialCtx, netDef, p.opts)
		if err != nil {
			return nil, err
		}
		p.clients.Set(clientKey, conn, cache.NoExpiration)
		p.logger.Info("Successfully created and cached new EVM client", "network", clientKey)
		return conn, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			p.logger.Error("Failed to create EVM client", "network", clientKey, "shared", res.Shared, "error", res.Err)
			return nil, fmt.Errorf("failed to create EVM client for %s: %w", clientKey, res.Err)
		}
		return res.Val.(port.Connection), nil
	}
}

// Active returns the cached connections sorted by network identifier.
func (p *evmClientProvider) Active() []port.Connection {
	items := p.clients.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conns := make([]port.Connection, 0, len(keys))
	for _, key := range keys {
		if conn, ok := items[key].Object.(port.Connection); ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// Close closes and forgets every cached connection.
func (p *evmClientProvider) Close() {
	for key, item := range p.clients.Items() {
		if conn, ok := item.Object.(port.Connection); ok {
			conn.Close()
		}
		p.clients.Delete(key)
		p.logger.Debug("Closed EVM client", "network", key)
	}
}
