package service

import (
	"context"
	"math/big"

	"position_resolver/internal/app/port"
	"position_resolver/internal/domain/entity"
	"position_resolver/internal/infrastructure/codec"
	"position_resolver/internal/pkg/rpcerr"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultScanSafetyCap bounds enumeration when no cap is configured.
const DefaultScanSafetyCap = 1000

// RegistryScanner implements port.ItemScanner by walking itemAt(i) from zero.
type RegistryScanner struct {
	logger port.Logger
}

// NewRegistryScanner creates a new RegistryScanner.
func NewRegistryScanner(l port.Logger) *RegistryScanner {
	return &RegistryScanner{logger: l}
}

// Scan returns the registry's items in index order. It stops silently on the
// zero address, on an out-of-range revert, or at safetyCap items. Any other
// failure is a DiscoveryError, or a ConnectivityError if the endpoint was
// never reached.
func (s *RegistryScanner) Scan(ctx context.Context, conn port.Connection, registry common.Address, height *big.Int, safetyCap int) ([]common.Address, error) {
	if safetyCap <= 0 {
		safetyCap = DefaultScanSafetyCap
	}
	network := conn.Definition().Identifier
	items := make([]common.Address, 0)

	for index := 0; index < safetyCap; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		payload, err := codec.Registry.EncodeCall(codec.MethodItemAt, big.NewInt(int64(index)))
		if err != nil {
			return nil, err
		}

		out, err := conn.Call(ctx, registry, payload, height)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if rpcerr.IsOutOfRange(err) {
				s.logger.Debug("Registry index out of range, enumeration complete", "network", network, "count", index)
				return items, nil
			}
			if !rpcerr.IsRemote(err) {
				return nil, &entity.ConnectivityError{Network: network, Err: err}
			}
			return nil, &entity.DiscoveryError{Registry: registry.Hex(), Index: index, Err: err}
		}

		item, err := codec.Registry.DecodeAddress(codec.MethodItemAt, out)
		if err != nil {
			return nil, &entity.DiscoveryError{Registry: registry.Hex(), Index: index, Err: err}
		}
		if item == entity.ZeroAddress {
			s.logger.Debug("Registry returned the null sentinel, enumeration complete", "network", network, "count", index)
			return items, nil
		}
		items = append(items, item)
	}

	s.logger.Warn("Registry scan reached the safety cap", "network", network, "cap", safetyCap)
	return items, nil
}

var _ port.ItemScanner = (*RegistryScanner)(nil)
