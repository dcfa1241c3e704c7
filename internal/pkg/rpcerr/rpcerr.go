// Package rpcerr classifies errors returned by JSON-RPC endpoints.
package rpcerr

import (
	"bytes"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	errorSelector = []byte{0x08, 0xc3, 0x79, 0xa0} // Error(string)
	panicSelector = []byte{0x4e, 0x48, 0x7b, 0x71} // Panic(uint256)

	panicArrayOutOfBounds = big.NewInt(0x32)
)

const (
	executionErrorCode  = 3
	revertedPrefix      = "execution reverted"
	invalidOpcodePrefix = "invalid opcode"
)

// IsRemote reports whether err is an error object returned by the endpoint,
// i.e. the endpoint was reached and answered. Transport failures, HTTP status
// errors and timeouts are not remote.
func IsRemote(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr)
}

// RevertData extracts the revert payload attached to an execution error.
func RevertData(err error) ([]byte, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return nil, false
	}
	switch d := dataErr.ErrorData().(type) {
	case string:
		b, decErr := hexutil.Decode(d)
		if decErr != nil {
			return nil, false
		}
		return b, true
	case []byte:
		return d, true
	default:
		return nil, false
	}
}

// IsOutOfRange reports whether err is the distinguished "index out of range"
// signal of an indexed accessor: a Solidity array bounds panic, a revert reason
// naming the range, or the invalid-opcode failure of pre-0.8 bounds checks.
// Only execution failures qualify; node errors such as "block number out of
// range" do not.
func IsOutOfRange(err error) bool {
	if err == nil || !IsExecutionFailure(err) {
		return false
	}
	if data, ok := RevertData(err); ok && IsOutOfRangeRevert(data) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return mentionsRange(msg) || strings.Contains(msg, invalidOpcodePrefix)
}

// IsExecutionFailure reports whether err is a remote error raised by EVM
// execution of the call rather than by the node itself: it carries revert
// data, uses the execution error code, or has an execution error message.
func IsExecutionFailure(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.ErrorCode() == executionErrorCode {
		return true
	}
	if data, ok := RevertData(err); ok && len(data) > 0 {
		return true
	}
	msg := strings.ToLower(rpcErr.Error())
	return strings.HasPrefix(msg, revertedPrefix) || strings.HasPrefix(msg, invalidOpcodePrefix)
}

// IsOutOfRangeRevert inspects raw revert data for the out-of-range signature.
func IsOutOfRangeRevert(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	switch {
	case bytes.Equal(data[:4], panicSelector):
		if len(data) < 36 {
			return false
		}
		return new(big.Int).SetBytes(data[4:36]).Cmp(panicArrayOutOfBounds) == 0
	case bytes.Equal(data[:4], errorSelector):
		reason, err := abi.UnpackRevert(data)
		if err != nil {
			return false
		}
		return mentionsRange(reason)
	default:
		return false
	}
}

func mentionsRange(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "out of range") || strings.Contains(msg, "out of bounds")
}
