package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"position_resolver/internal/app/port"
	"position_resolver/internal/config"
	"position_resolver/internal/domain/entity"
	"position_resolver/internal/infrastructure/codec"
	"position_resolver/internal/pkg/metrics"
	"position_resolver/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// reference, scale and label lookups per item
const metadataCallsPerItem = 3

// PositionService implements port.PositionResolver.
type PositionService struct {
	networkProvider port.NetworkDefinitionProvider
	connProvider    port.ConnectionProvider
	scanner         port.ItemScanner
	executor        port.BatchExecutor
	logger          port.Logger
	cfg             config.ResolverConfig
	clock           func() time.Time
}

// NewPositionService creates a new instance of PositionService.
func NewPositionService(
	np port.NetworkDefinitionProvider,
	cp port.ConnectionProvider,
	scanner port.ItemScanner,
	executor port.BatchExecutor,
	l port.Logger,
	cfg config.ResolverConfig,
) *PositionService {
	return &PositionService{
		networkProvider: np,
		connProvider:    cp,
		scanner:         scanner,
		executor:        executor,
		logger:          l,
		cfg:             cfg,
		clock:           time.Now,
	}
}

// Networks lists the supported networks.
func (s *PositionService) Networks() []entity.NetworkDefinition {
	return s.networkProvider.GetAllNetworkDefinitions()
}

// Health asks every open connection for its current head. Networks that were
// never resolved have no connection and are not listed.
func (s *PositionService) Health(ctx context.Context) []entity.NetworkHealth {
	conns := s.connProvider.Active()
	results := make([]entity.NetworkHealth, len(conns))
	for i, conn := range conns {
		network := conn.Definition().Identifier
		results[i].Network = network
		head, err := conn.BlockNumber(ctx)
		if err != nil {
			s.logger.Warn("Health probe failed", "network", network, "error", err)
			results[i].Error = err.Error()
			continue
		}
		results[i].Head = head
	}
	return results
}

// ResolvePositions runs enumeration, metadata and quantity resolution and
// joins them into a report. Only validation, connectivity, discovery and
// timeout errors are returned; per-item failures end up in Warnings.
func (s *PositionService) ResolvePositions(ctx context.Context, owner string, network string, height *big.Int) (*entity.PositionReport, error) {
	ownerAddr, netDef, err := s.validate(owner, network, height)
	if err != nil {
		return nil, err
	}

	start := s.clock()
	if timeout := s.cfg.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := s.resolve(ctx, ownerAddr, netDef, height, start)
	status := "ok"
	if err != nil {
		status = "error"
		err = asTimeout(err)
		if errors.Is(err, entity.ErrTimeout) {
			status = "timeout"
		}
		s.logger.Error("Position resolution failed", "network", netDef.Identifier, "owner", ownerAddr.Hex(), "error", err)
	}
	metrics.ResolutionDuration.WithLabelValues(netDef.Identifier, status).Observe(s.clock().Sub(start).Seconds())
	return report, err
}

// ResolveMany resolves several owners on one network with at most parallelism
// runs in flight over the shared connection. Results keep the input order and
// one owner's failure does not stop the others.
func (s *PositionService) ResolveMany(ctx context.Context, owners []string, network string, height *big.Int, parallelism int) []entity.OwnerResolution {
	results := make([]entity.OwnerResolution, len(owners))

	var g errgroup.Group
	g.SetLimit(max(parallelism, 1))
	for i, owner := range owners {
		g.Go(func() error {
			report, err := s.ResolvePositions(ctx, owner, network, height)
			results[i] = entity.OwnerResolution{Owner: owner, Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *PositionService) validate(owner, network string, height *big.Int) (common.Address, entity.NetworkDefinition, error) {
	owner = strings.TrimSpace(owner)
	if !common.IsHexAddress(owner) {
		return common.Address{}, entity.NetworkDefinition{}, &entity.ValidationError{Field: "owner", Value: owner, Reason: "not a 20-byte hex address"}
	}
	netDef, ok := s.networkProvider.GetNetworkDefinitionByName(network)
	if !ok {
		return common.Address{}, entity.NetworkDefinition{}, &entity.ValidationError{
			Field: "network", Value: network, Reason: "network is not supported", Err: entity.ErrUnsupportedNetwork,
		}
	}
	if height != nil && height.Sign() < 0 {
		return common.Address{}, entity.NetworkDefinition{}, &entity.ValidationError{Field: "block", Value: height.String(), Reason: "height must not be negative"}
	}
	return common.HexToAddress(owner), netDef, nil
}

func (s *PositionService) resolve(ctx context.Context, owner common.Address, netDef entity.NetworkDefinition, height *big.Int, start time.Time) (*entity.PositionReport, error) {
	log := s.logger.With("network", netDef.Identifier, "owner", owner.Hex())
	log.Info("Resolving positions", "height", height)

	conn, err := s.connProvider.Connect(ctx, netDef)
	if err != nil {
		return nil, err
	}

	items, err := s.scanner.Scan(ctx, conn, netDef.RegistryAddress, height, s.cfg.ScanSafetyCap)
	if err != nil {
		return nil, err
	}
	metrics.ItemsDiscovered.WithLabelValues(netDef.Identifier).Set(float64(len(items)))

	report := &entity.PositionReport{
		Owner:   owner,
		Network: netDef.Identifier,
		Height:  height,
		Entries: []entity.PositionEntry{},
	}
	if len(items) == 0 {
		log.Info("Registry is empty")
		report.Summary.ElapsedDuration = s.clock().Sub(start)
		return report, nil
	}

	metadata, warnings, err := s.resolveMetadata(ctx, conn, items, height)
	if err != nil {
		return nil, err
	}
	report.Warnings = append(report.Warnings, warnings...)

	quantities, warnings, err := s.resolveQuantities(ctx, conn, owner, metadata, height)
	if err != nil {
		return nil, err
	}
	report.Warnings = append(report.Warnings, warnings...)

	report.Entries = joinPositions(metadata, quantities)
	report.Summary = entity.Summary{
		ItemsDiscovered:          len(items),
		ItemsWithNonZeroQuantity: len(report.Entries),
		ElapsedDuration:          s.clock().Sub(start),
	}

	log.Info("Positions resolved", "items", len(items), "positions", len(report.Entries), "warnings", len(report.Warnings))
	return report, nil
}

func (s *PositionService) resolveMetadata(ctx context.Context, conn port.Connection, items []common.Address, height *big.Int) ([]entity.ItemMetadata, []entity.ResolutionWarning, error) {
	selectors := make([][]byte, 0, metadataCallsPerItem)
	for _, method := range []string{codec.MethodUnderlying, codec.MethodDecimals, codec.MethodSymbol} {
		data, err := codec.Item.EncodeCall(method)
		if err != nil {
			return nil, nil, err
		}
		selectors = append(selectors, data)
	}

	calls := make([]entity.Call, 0, len(items)*metadataCallsPerItem)
	for _, item := range items {
		for _, data := range selectors {
			calls = append(calls, entity.Call{Target: item, Data: data})
		}
	}

	results, err := s.executor.ExecuteBatchWithRetry(ctx, conn, calls, s.cfg.MaxRetries, height, s.cfg.MetadataItemsPerChunk*metadataCallsPerItem)
	if err != nil {
		return nil, nil, err
	}
	if len(results) != len(calls) {
		return nil, nil, fmt.Errorf("metadata stage: %d results for %d calls", len(results), len(calls))
	}

	metadata := make([]entity.ItemMetadata, len(items))
	var warnings []entity.ResolutionWarning
	for i, item := range items {
		offset := i * metadataCallsPerItem
		md, reason := decodeMetadata(item, results[offset:offset+metadataCallsPerItem])
		metadata[i] = md
		if reason != "" {
			s.logger.Debug("Falling back to item identity", "item", item.Hex(), "reason", reason)
			warnings = append(warnings, entity.ResolutionWarning{Stage: entity.StageMetadata, ItemIdentity: item, Message: reason})
		}
	}
	return metadata, warnings, nil
}

// decodeMetadata returns the fallback metadata together with a reason when
// any lookup failed or did not decode. A null reference falls back silently.
func decodeMetadata(item common.Address, results []entity.CallResult) (entity.ItemMetadata, string) {
	for _, r := range results {
		if !r.Success {
			return entity.FallbackMetadata(item), "metadata lookup failed"
		}
	}

	reference, err := codec.Item.DecodeAddress(codec.MethodUnderlying, results[0].Data)
	if err != nil {
		return entity.FallbackMetadata(item), err.Error()
	}
	scale, err := codec.Item.DecodeUint8(codec.MethodDecimals, results[1].Data)
	if err != nil {
		return entity.FallbackMetadata(item), err.Error()
	}
	label, err := codec.Item.DecodeString(codec.MethodSymbol, results[2].Data)
	if err != nil {
		return entity.FallbackMetadata(item), err.Error()
	}

	if reference == entity.ZeroAddress {
		return entity.FallbackMetadata(item), ""
	}
	return entity.ItemMetadata{
		ItemIdentity:              item,
		ResolvedReferenceIdentity: reference,
		Scale:                     scale,
		Label:                     label,
		IsDerived:                 true,
	}, ""
}

func (s *PositionService) resolveQuantities(ctx context.Context, conn port.Connection, owner common.Address, metadata []entity.ItemMetadata, height *big.Int) ([]entity.QuantityResult, []entity.ResolutionWarning, error) {
	registry := conn.Definition().RegistryAddress

	calls := make([]entity.Call, len(metadata))
	for i, md := range metadata {
		data, err := codec.Registry.EncodeCall(codec.MethodPositionOf, md.ResolvedReferenceIdentity, owner)
		if err != nil {
			return nil, nil, err
		}
		calls[i] = entity.Call{Target: registry, Data: data}
	}

	results, err := s.executor.ExecuteBatchWithRetry(ctx, conn, calls, s.cfg.MaxRetries, height, s.cfg.QuantityItemsPerChunk)
	if err != nil {
		return nil, nil, err
	}
	if len(results) != len(calls) {
		return nil, nil, fmt.Errorf("quantity stage: %d results for %d calls", len(results), len(calls))
	}

	quantities := make([]entity.QuantityResult, len(metadata))
	var warnings []entity.ResolutionWarning
	for i, md := range metadata {
		quantities[i] = entity.QuantityResult{ReferenceIdentity: md.ResolvedReferenceIdentity, SignedQuantity: new(big.Int)}

		message := "quantity lookup failed"
		if results[i].Success {
			amount, err := codec.Registry.DecodeBigInt(codec.MethodPositionOf, results[i].Data)
			if err == nil {
				quantities[i].SignedQuantity = amount
				quantities[i].Success = true
				continue
			}
			message = err.Error()
		}
		warnings = append(warnings, entity.ResolutionWarning{Stage: entity.StageQuantity, ItemIdentity: md.ItemIdentity, Message: message})
	}
	return quantities, warnings, nil
}

// joinPositions keeps successful non-zero quantities, in discovery order.
func joinPositions(metadata []entity.ItemMetadata, quantities []entity.QuantityResult) []entity.PositionEntry {
	entries := make([]entity.PositionEntry, 0)
	for i, md := range metadata {
		q := quantities[i]
		if !q.Success || q.SignedQuantity.Sign() == 0 {
			continue
		}

		entry := entity.PositionEntry{
			ReferenceIdentity: md.ResolvedReferenceIdentity,
			Label:             md.Label,
			SignedQuantity:    q.SignedQuantity,
			FormattedQuantity: utils.FormatBigInt(q.SignedQuantity, md.Scale),
			Scale:             md.Scale,
		}
		if md.IsDerived {
			item := md.ItemIdentity
			entry.DerivedFromIdentity = &item
		}
		entries = append(entries, entry)
	}
	return entries
}

func asTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", entity.ErrTimeout, err)
	}
	return err
}

var _ port.PositionResolver = (*PositionService)(nil)
