package entity

import "github.com/ethereum/go-ethereum/common"

// ZeroAddress is the null identity. A registry returning it ends enumeration
// and an item resolving to it falls back to its own identity.
var ZeroAddress = common.Address{}

// Call is a single read-only contract call: a target and its encoded calldata.
type Call struct {
	Target common.Address
	Data   []byte
}

// CallResult is the outcome of one Call. Results are always index-aligned with
// the calls that produced them; a failed call is Success=false with empty Data.
type CallResult struct {
	Success bool
	Data    []byte
}

// FailedResult is the placeholder used wherever a call could not be completed.
func FailedResult() CallResult {
	return CallResult{Success: false, Data: []byte{}}
}
