// Package testutil provides an in-memory chain that speaks the registry, item
// and Multicall3 ABIs for exercising the resolver without a network.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"position_resolver/internal/app/port"
	"position_resolver/internal/domain/entity"
	"position_resolver/internal/infrastructure/codec"
	networkdefinition "position_resolver/internal/infrastructure/network/definition"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NetworkID is the identifier of the fake network.
const NetworkID = "testnet"

// RegistryAddress is where the fake registry lives.
var RegistryAddress = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// ErrUnreachable is returned by every call while the chain is offline.
var ErrUnreachable = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")

// RevertError mimics the JSON-RPC error object of a reverted eth_call.
type RevertError struct {
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

func (e *RevertError) ErrorCode() int         { return 3 }
func (e *RevertError) ErrorData() interface{} { return hexutil.Encode(e.Data) }

// NodeError mimics a JSON-RPC error raised by the node itself, such as a
// request for a height it does not serve.
type NodeError struct {
	Code    int
	Message string
}

func (e *NodeError) Error() string  { return e.Message }
func (e *NodeError) ErrorCode() int { return e.Code }

// PanicOutOfBounds is the Solidity Panic(0x32) revert payload.
func PanicOutOfBounds() []byte {
	word := make([]byte, 32)
	word[31] = 0x32
	return append([]byte{0x4e, 0x48, 0x7b, 0x71}, word...)
}

// Item describes one registry entry.
type Item struct {
	Address    common.Address
	Underlying common.Address
	Decimals   uint8
	Symbol     string
}

// TerminalMode selects how the registry signals the end of its item list.
type TerminalMode int

const (
	TerminalOutOfRange TerminalMode = iota
	TerminalSentinel
	TerminalGenericRevert
	// TerminalNodeError fails past the last item with a node error whose
	// message mentions a range but is not an execution revert.
	TerminalNodeError
)

// Chain is a fake port.Connection. Configure it before use; counters may be
// read concurrently.
type Chain struct {
	Def      entity.NetworkDefinition
	Items    []Item
	Terminal TerminalMode

	// positions keyed by reference identity then owner.
	positions map[common.Address]map[common.Address]*big.Int

	mu             sync.Mutex
	failing        map[common.Address]map[string]int // remaining failures, -1 is permanent
	aggregateFails int
	offline        bool
	aggregateSizes []int
	directCalls    int
	heights        []*big.Int
	closed         bool
}

// NewChain returns a chain with the given items and the canonical aggregator.
func NewChain(items ...Item) *Chain {
	return &Chain{
		Def: entity.NetworkDefinition{
			ChainID:           31337,
			Name:              "Test Network",
			Identifier:        NetworkID,
			PrimaryRPCURL:     "http://127.0.0.1:8545",
			RegistryAddress:   RegistryAddress,
			AggregatorAddress: networkdefinition.Multicall3Address,
		},
		Items:     items,
		positions: make(map[common.Address]map[common.Address]*big.Int),
		failing:   make(map[common.Address]map[string]int),
	}
}

// SequentialItems builds n underlying-backed items with distinct addresses.
func SequentialItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			Address:    common.BigToAddress(big.NewInt(int64(0x1000 + i))),
			Underlying: common.BigToAddress(big.NewInt(int64(0x2000 + i))),
			Decimals:   6,
			Symbol:     fmt.Sprintf("TKN%d", i),
		}
	}
	return items
}

// SetPosition records owner's quantity for a reference identity.
func (c *Chain) SetPosition(reference, owner common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.positions[reference] == nil {
		c.positions[reference] = make(map[common.Address]*big.Int)
	}
	c.positions[reference][owner] = new(big.Int).Set(amount)
}

// FailMethod makes method calls on target revert the next times calls; a
// negative times fails forever.
func (c *Chain) FailMethod(target common.Address, method string, times int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing[target] == nil {
		c.failing[target] = make(map[string]int)
	}
	c.failing[target][method] = times
}

// FailAggregate makes the next n aggregate requests fail as a whole.
func (c *Chain) FailAggregate(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aggregateFails = n
}

// SetOffline makes every call fail with a transport error.
func (c *Chain) SetOffline(offline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offline = offline
}

// AggregateSizes returns the number of calls in each aggregate request made so far.
func (c *Chain) AggregateSizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.aggregateSizes...)
}

// DirectCalls returns the number of non-aggregate calls made so far.
func (c *Chain) DirectCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.directCalls
}

// Heights returns the height argument of every call made so far.
func (c *Chain) Heights() []*big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*big.Int(nil), c.heights...)
}

// ResetCounters clears request accounting.
func (c *Chain) ResetCounters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aggregateSizes = nil
	c.directCalls = 0
	c.heights = nil
}

// Closed reports whether Close was called.
func (c *Chain) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Call implements port.Connection.
func (c *Chain) Call(ctx context.Context, target common.Address, payload []byte, height *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.heights = append(c.heights, height)
	if c.offline {
		return nil, ErrUnreachable
	}

	if target != c.Def.AggregatorAddress {
		c.directCalls++
		return c.dispatch(target, payload)
	}

	calls, err := codec.DecodeAggregate3Call(payload)
	if err != nil {
		return nil, &RevertError{Reason: "bad aggregate payload"}
	}
	c.aggregateSizes = append(c.aggregateSizes, len(calls))
	if c.aggregateFails > 0 {
		c.aggregateFails--
		return nil, &RevertError{Reason: "aggregator out of gas"}
	}

	results := make([]entity.CallResult, len(calls))
	for i, call := range calls {
		out, err := c.dispatch(call.Target, call.Data)
		if err != nil {
			var revert *RevertError
			if errors.As(err, &revert) {
				out = revert.Data
			}
			results[i] = entity.CallResult{Success: false, Data: out}
			continue
		}
		results[i] = entity.CallResult{Success: true, Data: out}
	}
	return codec.EncodeAggregate3Result(results)
}

// BlockNumber implements port.Connection.
func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offline {
		return 0, ErrUnreachable
	}
	return 19_000_000, ctx.Err()
}

// Definition implements port.Connection.
func (c *Chain) Definition() entity.NetworkDefinition {
	return c.Def
}

// Close implements port.Connection.
func (c *Chain) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Chain) dispatch(target common.Address, payload []byte) ([]byte, error) {
	if target == c.Def.RegistryAddress {
		return c.registryCall(payload)
	}
	for _, item := range c.Items {
		if item.Address == target {
			return c.itemCall(item, payload)
		}
	}
	return nil, &RevertError{}
}

func (c *Chain) shouldFail(target common.Address, method string) bool {
	remaining, ok := c.failing[target][method]
	if !ok || remaining == 0 {
		return false
	}
	if remaining > 0 {
		c.failing[target][method] = remaining - 1
	}
	return true
}

func (c *Chain) registryCall(payload []byte) ([]byte, error) {
	method, args, err := codec.Registry.DecodeCall(payload)
	if err != nil {
		return nil, &RevertError{}
	}
	if c.shouldFail(c.Def.RegistryAddress, method) {
		return nil, &RevertError{Reason: "injected failure"}
	}

	switch method {
	case codec.MethodItemAt:
		index := args[0].(*big.Int)
		if index.IsInt64() && index.Int64() < int64(len(c.Items)) {
			return codec.Registry.EncodeResult(method, c.Items[index.Int64()].Address)
		}
		switch c.Terminal {
		case TerminalSentinel:
			return codec.Registry.EncodeResult(method, entity.ZeroAddress)
		case TerminalGenericRevert:
			return nil, &RevertError{Reason: "registry paused"}
		case TerminalNodeError:
			return nil, &NodeError{Code: -32000, Message: "block number out of range"}
		default:
			return nil, &RevertError{Data: PanicOutOfBounds()}
		}
	case codec.MethodPositionOf:
		asset := args[0].(common.Address)
		owner := args[1].(common.Address)
		amount := new(big.Int)
		if byOwner, ok := c.positions[asset]; ok && byOwner[owner] != nil {
			amount.Set(byOwner[owner])
		}
		return codec.Registry.EncodeResult(method, amount)
	default:
		return nil, &RevertError{}
	}
}

func (c *Chain) itemCall(item Item, payload []byte) ([]byte, error) {
	method, _, err := codec.Item.DecodeCall(payload)
	if err != nil {
		return nil, &RevertError{}
	}
	if c.shouldFail(item.Address, method) {
		return nil, &RevertError{Reason: "injected failure"}
	}

	switch method {
	case codec.MethodUnderlying:
		return codec.Item.EncodeResult(method, item.Underlying)
	case codec.MethodDecimals:
		return codec.Item.EncodeResult(method, item.Decimals)
	case codec.MethodSymbol:
		return codec.Item.EncodeResult(method, item.Symbol)
	default:
		return nil, &RevertError{}
	}
}

var _ port.Connection = (*Chain)(nil)
