package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"position_resolver/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const registryABI = `[
{"inputs":[{"name":"index","type":"uint256"}],"name":"itemAt","outputs":[{"name":"item","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"asset","type":"address"},{"name":"owner","type":"address"}],"name":"positionOf","outputs":[{"name":"quantity","type":"int256"}],"stateMutability":"view","type":"function"}
]`

const itemABI = `[
{"inputs":[],"name":"underlying","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

// Method names of the registry and item interfaces.
const (
	MethodItemAt     = "itemAt"
	MethodPositionOf = "positionOf"
	MethodUnderlying = "underlying"
	MethodDecimals   = "decimals"
	MethodSymbol     = "symbol"
)

var (
	// Registry describes the enumerable registry: indexed item lookup and
	// owner quantity lookup.
	Registry = MustNew("Registry", registryABI)
	// Item describes a registry item: reference, scale and label lookups.
	Item = MustNew("Item", itemABI)
)

// Codec encodes calls and decodes results for one published interface.
// It is pure and safe for concurrent use.
type Codec struct {
	name string
	abi  abi.ABI
}

// New parses a JSON interface description.
func New(name, jsonABI string) (*Codec, error) {
	parsed, err := abi.JSON(strings.NewReader(jsonABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s ABI: %w", name, err)
	}
	return &Codec{name: name, abi: parsed}, nil
}

// MustNew is New for package-level descriptors; a bad descriptor is a programming error.
func MustNew(name, jsonABI string) *Codec {
	c, err := New(name, jsonABI)
	if err != nil {
		panic(err)
	}
	return c
}

// EncodeCall packs the selector and arguments of method.
func (c *Codec) EncodeCall(method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s.%s: %w", c.name, method, err)
	}
	return data, nil
}

// DecodeCall resolves the method from the selector and unpacks its arguments.
func (c *Codec) DecodeCall(data []byte) (string, []interface{}, error) {
	if len(data) < 4 {
		return "", nil, &entity.DecodeError{Method: c.name, Err: fmt.Errorf("calldata of %d bytes has no selector", len(data))}
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return "", nil, &entity.DecodeError{Method: c.name, Err: err}
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return method.Name, nil, &entity.DecodeError{Method: c.qualified(method.Name), Err: err}
	}
	return method.Name, args, nil
}

// EncodeResult packs return values of method as a contract would.
func (c *Codec) EncodeResult(method string, values ...interface{}) ([]byte, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found in %s ABI", method, c.name)
	}
	return m.Outputs.Pack(values...)
}

// DecodeResult unpacks the return data of method.
func (c *Codec) DecodeResult(method string, data []byte) ([]interface{}, error) {
	out, err := c.abi.Unpack(method, data)
	if err != nil {
		return nil, &entity.DecodeError{Method: c.qualified(method), Err: err}
	}
	return out, nil
}

// DecodeAddress decodes a single address return value.
func (c *Codec) DecodeAddress(method string, data []byte) (common.Address, error) {
	if err := requirePadding(data, common.AddressLength); err != nil {
		return common.Address{}, &entity.DecodeError{Method: c.qualified(method), Err: err}
	}
	v, err := c.single(method, data)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, c.typeMismatch(method, "address", v)
	}
	return addr, nil
}

// DecodeUint8 decodes a single uint8 return value.
func (c *Codec) DecodeUint8(method string, data []byte) (uint8, error) {
	if err := requirePadding(data, 1); err != nil {
		return 0, &entity.DecodeError{Method: c.qualified(method), Err: err}
	}
	v, err := c.single(method, data)
	if err != nil {
		return 0, err
	}
	n, ok := v.(uint8)
	if !ok {
		return 0, c.typeMismatch(method, "uint8", v)
	}
	return n, nil
}

// DecodeString decodes a single string return value.
func (c *Codec) DecodeString(method string, data []byte) (string, error) {
	v, err := c.single(method, data)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", c.typeMismatch(method, "string", v)
	}
	return s, nil
}

// DecodeBigInt decodes a single (u)int256 return value.
func (c *Codec) DecodeBigInt(method string, data []byte) (*big.Int, error) {
	v, err := c.single(method, data)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return nil, c.typeMismatch(method, "*big.Int", v)
	}
	return n, nil
}

func (c *Codec) single(method string, data []byte) (interface{}, error) {
	out, err := c.DecodeResult(method, data)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, &entity.DecodeError{Method: c.qualified(method), Err: fmt.Errorf("expected 1 return value, got %d", len(out))}
	}
	return out[0], nil
}

func (c *Codec) typeMismatch(method, want string, got interface{}) error {
	return &entity.DecodeError{Method: c.qualified(method), Err: fmt.Errorf("expected %s, got %T", want, got)}
}

func (c *Codec) qualified(method string) string {
	return c.name + "." + method
}

var errShortWord = errors.New("return data shorter than one word")

// requirePadding rejects a static word whose value does not fit in size bytes.
func requirePadding(data []byte, size int) error {
	if len(data) < 32 {
		return errShortWord
	}
	if !bytes.Equal(data[:32-size], make([]byte, 32-size)) {
		return fmt.Errorf("value does not fit in %d bytes: %x", size, data[:32])
	}
	return nil
}
