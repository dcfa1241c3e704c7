// Package multicall runs independent read-only calls as chunked Multicall3
// aggregate requests with serial fallback and per-call retry.
package multicall

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"time"

	"position_resolver/internal/app/port"
	"position_resolver/internal/domain/entity"
	"position_resolver/internal/infrastructure/codec"
	"position_resolver/internal/pkg/metrics"
	"position_resolver/internal/pkg/rpcerr"
	"position_resolver/internal/pkg/utils"

	"golang.org/x/sync/errgroup"
)

var errNoResponse = errors.New("endpoint did not answer any request")

// Executor implements port.BatchExecutor.
type Executor struct {
	logger      port.Logger
	parallelism int
	retryDelay  time.Duration
}

// NewExecutor creates an Executor. Chunks are processed one at a time unless
// parallelism is greater than one.
func NewExecutor(logger port.Logger, parallelism int, retryDelay time.Duration) *Executor {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Executor{
		logger:      logger,
		parallelism: parallelism,
		retryDelay:  retryDelay,
	}
}

// ExecuteBatch runs calls in aggregate requests of at most chunkSize calls.
// A chunk whose aggregate request fails is replayed call by call. The result
// is index-aligned with calls; only context errors are returned.
func (e *Executor) ExecuteBatch(ctx context.Context, conn port.Connection, calls []entity.Call, height *big.Int, chunkSize int) ([]entity.CallResult, error) {
	results, _, err := e.executeBatch(ctx, conn, calls, height, chunkSize)
	return results, err
}

// ExecuteBatchWithRetry runs ExecuteBatch once and then resubmits the failed
// positions up to maxRetries times. Calls that keep failing keep their failed
// result. It fails with a ConnectivityError if the endpoint never answered.
func (e *Executor) ExecuteBatchWithRetry(ctx context.Context, conn port.Connection, calls []entity.Call, maxRetries int, height *big.Int, chunkSize int) ([]entity.CallResult, error) {
	network := conn.Definition().Identifier

	results, reached, err := e.executeBatch(ctx, conn, calls, height, chunkSize)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		pending := failedIndices(results)
		if len(pending) == 0 {
			break
		}
		if err := utils.SleepContext(ctx, e.retryDelay); err != nil {
			return nil, err
		}

		e.logger.Debug("Retrying failed calls", "network", network, "attempt", attempt, "count", len(pending))
		metrics.RetriedCalls.WithLabelValues(network).Add(float64(len(pending)))

		retryCalls := make([]entity.Call, len(pending))
		for i, idx := range pending {
			retryCalls[i] = calls[idx]
		}
		retried, ok, err := e.executeBatch(ctx, conn, retryCalls, height, chunkSize)
		if err != nil {
			return nil, err
		}
		reached = reached || ok
		for i, idx := range pending {
			results[idx] = retried[i]
		}
	}

	if !reached && len(calls) > 0 {
		return nil, &entity.ConnectivityError{Network: network, Err: errNoResponse}
	}
	if failed := len(failedIndices(results)); failed > 0 {
		e.logger.Warn("Calls still failing after retries", "network", network, "failed", failed, "total", len(calls))
	}
	return results, nil
}

// executeBatch also reports whether the endpoint answered at least once,
// reverts included.
func (e *Executor) executeBatch(ctx context.Context, conn port.Connection, calls []entity.Call, height *big.Int, chunkSize int) ([]entity.CallResult, bool, error) {
	results := make([]entity.CallResult, len(calls))
	if len(calls) == 0 {
		return results, false, nil
	}
	if chunkSize <= 0 {
		chunkSize = len(calls)
	}

	var reached atomic.Bool
	chunks := utils.Chunk(calls, chunkSize)

	run := func(ctx context.Context, i int) error {
		chunkResults, ok, err := e.executeChunk(ctx, conn, chunks[i], height)
		if err != nil {
			return err
		}
		if ok {
			reached.Store(true)
		}
		copy(results[i*chunkSize:], chunkResults)
		return nil
	}

	if e.parallelism == 1 || len(chunks) == 1 {
		for i := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
			if err := run(ctx, i); err != nil {
				return nil, false, err
			}
		}
		return results, reached.Load(), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return run(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	return results, reached.Load(), nil
}

func (e *Executor) executeChunk(ctx context.Context, conn port.Connection, chunk []entity.Call, height *big.Int) ([]entity.CallResult, bool, error) {
	netDef := conn.Definition()
	reached := false

	payload, err := codec.EncodeAggregate3(chunk)
	if err == nil {
		var out []byte
		out, err = conn.Call(ctx, netDef.AggregatorAddress, payload, height)
		if err == nil {
			reached = true
			var decoded []entity.CallResult
			decoded, err = codec.DecodeAggregate3Result(out)
			if err == nil && len(decoded) == len(chunk) {
				metrics.AggregateRequests.WithLabelValues(netDef.Identifier, "ok").Inc()
				return decoded, true, nil
			}
			if err == nil {
				err = &entity.DecodeError{Method: "Multicall3." + codec.MethodAggregate3, Err: errors.New("result count does not match call count")}
			}
		} else if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		} else if rpcerr.IsRemote(err) {
			reached = true
		}
	}

	metrics.AggregateRequests.WithLabelValues(netDef.Identifier, "failed").Inc()
	e.logger.Warn("Aggregate request failed, falling back to serial calls",
		"network", netDef.Identifier, "calls", len(chunk), "error", err)

	results := make([]entity.CallResult, len(chunk))
	for i, call := range chunk {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		metrics.SerialFallbackCalls.WithLabelValues(netDef.Identifier).Inc()

		out, callErr := conn.Call(ctx, call.Target, call.Data, height)
		if callErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, false, ctxErr
			}
			if rpcerr.IsRemote(callErr) {
				reached = true
			}
			e.logger.Debug("Serial call failed", "network", netDef.Identifier, "target", call.Target.Hex(), "error", callErr)
			results[i] = entity.FailedResult()
			continue
		}
		reached = true
		if out == nil {
			out = []byte{}
		}
		results[i] = entity.CallResult{Success: true, Data: out}
	}
	return results, reached, nil
}

func failedIndices(results []entity.CallResult) []int {
	var failed []int
	for i, r := range results {
		if !r.Success {
			failed = append(failed, i)
		}
	}
	return failed
}

var _ port.BatchExecutor = (*Executor)(nil)
