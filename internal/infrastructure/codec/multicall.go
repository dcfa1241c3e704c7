package codec

import (
	"fmt"

	"position_resolver/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const multicall3ABI = `[
{"inputs":[{"components":[{"name":"target","type":"address"},{"name":"allowFailure","type":"bool"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],"name":"aggregate3","outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}
]`

// MethodAggregate3 is the failure-tolerant aggregate entry point of Multicall3.
const MethodAggregate3 = "aggregate3"

// Multicall3 describes the aggregator interface.
var Multicall3 = MustNew("Multicall3", multicall3ABI)

// Call3 mirrors the Multicall3.Call3 tuple.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result3 mirrors the Multicall3.Result tuple.
type Result3 struct {
	Success    bool
	ReturnData []byte
}

// EncodeAggregate3 packs calls into one aggregate request, each marked
// failure-tolerant so a single revert cannot abort the others.
func EncodeAggregate3(calls []entity.Call) ([]byte, error) {
	packed := make([]Call3, len(calls))
	for i, call := range calls {
		packed[i] = Call3{Target: call.Target, AllowFailure: true, CallData: call.Data}
	}
	return Multicall3.EncodeCall(MethodAggregate3, packed)
}

// DecodeAggregate3Result unpacks the per-call outcomes of an aggregate request.
func DecodeAggregate3Result(data []byte) (results []entity.CallResult, err error) {
	out, err := Multicall3.DecodeResult(MethodAggregate3, data)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, &entity.DecodeError{Method: "Multicall3." + MethodAggregate3, Err: fmt.Errorf("expected 1 return value, got %d", len(out))}
	}

	defer func() {
		if r := recover(); r != nil {
			results, err = nil, &entity.DecodeError{Method: "Multicall3." + MethodAggregate3, Err: fmt.Errorf("unexpected result shape: %v", r)}
		}
	}()
	decoded := *abi.ConvertType(out[0], new([]Result3)).(*[]Result3)

	results = make([]entity.CallResult, len(decoded))
	for i, r := range decoded {
		data := r.ReturnData
		if data == nil {
			data = []byte{}
		}
		results[i] = entity.CallResult{Success: r.Success, Data: data}
	}
	return results, nil
}

// DecodeAggregate3Call unpacks an aggregate request back into its calls.
func DecodeAggregate3Call(data []byte) (calls []entity.Call, err error) {
	method, args, err := Multicall3.DecodeCall(data)
	if err != nil {
		return nil, err
	}
	if method != MethodAggregate3 || len(args) != 1 {
		return nil, &entity.DecodeError{Method: "Multicall3." + method, Err: fmt.Errorf("not an aggregate3 request")}
	}

	defer func() {
		if r := recover(); r != nil {
			calls, err = nil, &entity.DecodeError{Method: "Multicall3." + MethodAggregate3, Err: fmt.Errorf("unexpected call shape: %v", r)}
		}
	}()
	decoded := *abi.ConvertType(args[0], new([]Call3)).(*[]Call3)

	calls = make([]entity.Call, len(decoded))
	for i, c := range decoded {
		calls[i] = entity.Call{Target: c.Target, Data: c.CallData}
	}
	return calls, nil
}

// EncodeAggregate3Result packs per-call outcomes as the aggregator would.
func EncodeAggregate3Result(results []entity.CallResult) ([]byte, error) {
	packed := make([]Result3, len(results))
	for i, r := range results {
		data := r.Data
		if data == nil {
			data = []byte{}
		}
		packed[i] = Result3{Success: r.Success, ReturnData: data}
	}
	return Multicall3.EncodeResult(MethodAggregate3, packed)
}
