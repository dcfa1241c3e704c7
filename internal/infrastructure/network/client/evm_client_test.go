package client

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"position_resolver/internal/domain/entity"
	"position_resolver/internal/pkg/rpcerr"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/go-cmp/cmp"
	jsoniter "github.com/json-iterator/go"
)

type stubReply struct {
	status int // zero means 200
	result interface{}
	err    map[string]interface{}
	hang   bool
}

// rpcStub is a JSON-RPC endpoint answering one request per HTTP call.
type rpcStub struct {
	srv    *httptest.Server
	handle func(method string, n int) stubReply

	mu    sync.Mutex
	calls map[string]int
}

func newRPCStub(t *testing.T, handle func(method string, n int) stubReply) *rpcStub {
	t.Helper()
	stub := &rpcStub{handle: handle, calls: make(map[string]int)}
	done := make(chan struct{})
	stub.srv = httptest.NewServer(http.HandlerFunc(stub.serve(done)))
	t.Cleanup(func() {
		close(done)
		stub.srv.Close()
	})
	return stub
}

func (s *rpcStub) serve(done <-chan struct{}) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req struct {
			ID     jsoniter.RawMessage `json:"id"`
			Method string              `json:"method"`
		}
		if err := jsoniter.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.calls[req.Method]++
		n := s.calls[req.Method]
		s.mu.Unlock()

		reply := s.handle(req.Method, n)
		if reply.hang {
			select {
			case <-r.Context().Done():
			case <-done:
			}
			return
		}
		if reply.status != 0 && reply.status != http.StatusOK {
			http.Error(w, "upstream unavailable", reply.status)
			return
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if reply.err != nil {
			resp["error"] = reply.err
		} else {
			resp["result"] = reply.result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = jsoniter.NewEncoder(w).Encode(resp)
	}
}

func (s *rpcStub) URL() string { return s.srv.URL }

func (s *rpcStub) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func headOK(method string) (stubReply, bool) {
	if method == "eth_blockNumber" {
		return stubReply{result: "0x121eac0"}, true
	}
	return stubReply{}, false
}

func testNetwork(urls ...string) entity.NetworkDefinition {
	return entity.NetworkDefinition{
		Identifier:      "stubnet",
		PrimaryRPCURL:   urls[0],
		FallbackRPCURLs: urls[1:],
	}
}

func testOptions() Options {
	return Options{
		LivenessTimeout: 100 * time.Millisecond,
		RPCCallTimeout:  time.Second,
		MaxRetries:      2,
		RetryDelay:      time.Millisecond,
	}
}

func TestNewEVMClientLivenessTimeout(t *testing.T) {
	stub := newRPCStub(t, func(string, int) stubReply { return stubReply{hang: true} })

	start := time.Now()
	_, err := NewEVMClient(context.Background(), testNetwork(stub.URL()), testOptions())
	var connErr *entity.ConnectivityError
	if !errors.As(err, &connErr) || connErr.Network != "stubnet" {
		t.Fatalf("NewEVMClient() error = %v, want ConnectivityError for stubnet", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("liveness probe took %v, want it bounded by the liveness timeout", elapsed)
	}
	if got := stub.Calls("eth_blockNumber"); got != 1 {
		t.Fatalf("eth_blockNumber calls = %d, want 1", got)
	}
}

func TestNewEVMClientFailsOverToFallback(t *testing.T) {
	primary := newRPCStub(t, func(string, int) stubReply { return stubReply{hang: true} })
	unhealthy := newRPCStub(t, func(string, int) stubReply { return stubReply{status: http.StatusBadGateway} })
	fallback := newRPCStub(t, func(method string, _ int) stubReply {
		reply, _ := headOK(method)
		return reply
	})

	client, err := NewEVMClient(context.Background(), testNetwork(primary.URL(), unhealthy.URL(), fallback.URL()), testOptions())
	if err != nil {
		t.Fatalf("NewEVMClient() error = %v", err)
	}
	defer client.Close()

	if client.rpcURL != fallback.URL() {
		t.Fatalf("connected to %s, want fallback %s", client.rpcURL, fallback.URL())
	}
	for name, stub := range map[string]*rpcStub{"primary": primary, "unhealthy": unhealthy, "fallback": fallback} {
		if got := stub.Calls("eth_blockNumber"); got != 1 {
			t.Errorf("%s eth_blockNumber calls = %d, want 1", name, got)
		}
	}

	head, err := client.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("BlockNumber() error = %v", err)
	}
	if head != 0x121eac0 {
		t.Fatalf("BlockNumber() = %d, want %d", head, 0x121eac0)
	}
}

func TestEVMClientCallRetriesTransportErrors(t *testing.T) {
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	stub := newRPCStub(t, func(method string, n int) stubReply {
		if reply, ok := headOK(method); ok {
			return reply
		}
		if n <= 2 {
			return stubReply{status: http.StatusInternalServerError}
		}
		return stubReply{result: hexutil.Encode(want)}
	})

	client, err := NewEVMClient(context.Background(), testNetwork(stub.URL()), testOptions())
	if err != nil {
		t.Fatalf("NewEVMClient() error = %v", err)
	}
	defer client.Close()

	got, err := client.Call(context.Background(), common.HexToAddress("0xaa"), []byte{0x01}, big.NewInt(100))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Call() mismatch (-want +got):\n%s", diff)
	}
	if calls := stub.Calls("eth_call"); calls != 3 {
		t.Fatalf("eth_call calls = %d, want 3", calls)
	}
}

func TestEVMClientCallGivesUpAfterMaxRetries(t *testing.T) {
	stub := newRPCStub(t, func(method string, _ int) stubReply {
		if reply, ok := headOK(method); ok {
			return reply
		}
		return stubReply{status: http.StatusServiceUnavailable}
	})

	opts := testOptions()
	opts.MaxRetries = 1
	client, err := NewEVMClient(context.Background(), testNetwork(stub.URL()), opts)
	if err != nil {
		t.Fatalf("NewEVMClient() error = %v", err)
	}
	defer client.Close()

	_, err = client.Call(context.Background(), common.HexToAddress("0xaa"), []byte{0x01}, nil)
	if err == nil {
		t.Fatal("Call() succeeded, want transport error")
	}
	if rpcerr.IsRemote(err) {
		t.Fatalf("Call() error = %v, want a non-remote transport error", err)
	}
	if calls := stub.Calls("eth_call"); calls != 2 {
		t.Fatalf("eth_call calls = %d, want 2", calls)
	}
}

func TestEVMClientCallReturnsRevertWithoutRetry(t *testing.T) {
	word := make([]byte, 32)
	word[31] = 0x32
	revert := append([]byte{0x4e, 0x48, 0x7b, 0x71}, word...)

	stub := newRPCStub(t, func(method string, _ int) stubReply {
		if reply, ok := headOK(method); ok {
			return reply
		}
		return stubReply{err: map[string]interface{}{
			"code":    3,
			"message": "execution reverted",
			"data":    hexutil.Encode(revert),
		}}
	})

	client, err := NewEVMClient(context.Background(), testNetwork(stub.URL()), testOptions())
	if err != nil {
		t.Fatalf("NewEVMClient() error = %v", err)
	}
	defer client.Close()

	_, err = client.Call(context.Background(), common.HexToAddress("0xaa"), []byte{0x01}, nil)
	if !rpcerr.IsRemote(err) {
		t.Fatalf("Call() error = %v, want a remote error", err)
	}
	if !rpcerr.IsOutOfRange(err) {
		t.Fatalf("Call() error = %v, want the out-of-range revert preserved", err)
	}
	if calls := stub.Calls("eth_call"); calls != 1 {
		t.Fatalf("eth_call calls = %d, want 1", calls)
	}
}

func TestEVMClientCallNodeErrorIsNotTerminal(t *testing.T) {
	stub := newRPCStub(t, func(method string, _ int) stubReply {
		if reply, ok := headOK(method); ok {
			return reply
		}
		return stubReply{err: map[string]interface{}{"code": -32000, "message": "block number out of range"}}
	})

	client, err := NewEVMClient(context.Background(), testNetwork(stub.URL()), testOptions())
	if err != nil {
		t.Fatalf("NewEVMClient() error = %v", err)
	}
	defer client.Close()

	_, err = client.Call(context.Background(), common.HexToAddress("0xaa"), []byte{0x01}, big.NewInt(99_999_999_999))
	if !rpcerr.IsRemote(err) {
		t.Fatalf("Call() error = %v, want a remote error", err)
	}
	if rpcerr.IsOutOfRange(err) {
		t.Fatalf("node error %v classified as an out-of-range revert", err)
	}
	if calls := stub.Calls("eth_call"); calls != 1 {
		t.Fatalf("eth_call calls = %d, want 1", calls)
	}
}
