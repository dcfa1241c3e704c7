package client

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"position_resolver/internal/app/port"
	"position_resolver/internal/config"
	"position_resolver/internal/domain/entity"
	"position_resolver/internal/pkg/metrics"
	"position_resolver/internal/pkg/rpcerr"
	"position_resolver/internal/pkg/utils"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

const defaultLivenessTimeout = 10 * time.Second

// Options tune the transport behaviour of an EVMClient.
type Options struct {
	LivenessTimeout time.Duration
	RPCCallTimeout  time.Duration
	RateLimit       float64 // requests per second, <= 0 disables throttling
	BurstLimit      int
	MaxRetries      int // client-level retries of transport failures
	RetryDelay      time.Duration
	HTTPClient      *http.Client
}

// OptionsFromConfig maps the rpcClient config section to client options.
func OptionsFromConfig(cfg config.RpcClientConfig) Options {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	return Options{
		LivenessTimeout: cfg.LivenessTimeout(),
		RPCCallTimeout:  cfg.CallTimeout(),
		RateLimit:       cfg.RateLimit,
		BurstLimit:      cfg.BurstLimit,
		MaxRetries:      cfg.MaxRetries,
		RetryDelay:      cfg.RetryDelay(),
		HTTPClient:      &http.Client{Transport: transport},
	}
}

// EVMClient implements port.Connection for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	netDef         entity.NetworkDefinition
	rpcURL         string
	rpcCallTimeout time.Duration
	limiter        *rate.Limiter
	maxRetries     int
	retryDelay     time.Duration
}

// NewEVMClient connects to the first reachable endpoint of the network. Each
// candidate must answer a bounded-time liveness probe (current block number).
func NewEVMClient(ctx context.Context, netDef entity.NetworkDefinition, opts Options) (*EVMClient, error) {
	rpcURLs := netDef.RPCURLs()
	if len(rpcURLs) == 0 {
		return nil, &entity.ConnectivityError{Network: netDef.Identifier, Err: fmt.Errorf("no RPC endpoints configured")}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	livenessTimeout := opts.LivenessTimeout
	if livenessTimeout <= 0 {
		livenessTimeout = defaultLivenessTimeout
	}

	var lastErr error
	for _, rpcURL := range rpcURLs {
		probeCtx, cancel := context.WithTimeout(ctx, livenessTimeout)
		rpcClient, err := rpc.DialOptions(probeCtx, rpcURL, rpc.WithHTTPClient(httpClient))
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}

		ethClient := ethclient.NewClient(rpcClient)
		_, err = ethClient.BlockNumber(probeCtx)
		cancel()
		if err != nil {
			ethClient.Close()
			lastErr = fmt.Errorf("liveness probe against %s failed: %w", rpcURL, err)
			continue
		}

		return &EVMClient{
			ethClient:      ethClient,
			netDef:         netDef,
			rpcURL:         rpcURL,
			rpcCallTimeout: opts.RPCCallTimeout,
			limiter:        newLimiter(opts.RateLimit, opts.BurstLimit),
			maxRetries:     opts.MaxRetries,
			retryDelay:     opts.RetryDelay,
		}, nil
	}

	return nil, &entity.ConnectivityError{Network: netDef.Identifier, Err: fmt.Errorf("all RPC connection attempts failed: %w", lastErr)}
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Call performs one eth_call. Transport failures are retried up to maxRetries
// times; anything the endpoint answered (reverts included) is returned as is.
func (c *EVMClient) Call(ctx context.Context, target common.Address, payload []byte, height *big.Int) ([]byte, error) {
	msg := ethereum.CallMsg{To: &target, Data: payload}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := utils.SleepContext(ctx, c.retryDelay); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		metrics.RPCRequests.WithLabelValues(c.netDef.Identifier, "eth_call").Inc()
		callCtx, cancel := c.withCallTimeout(ctx)
		out, err := c.ethClient.CallContract(callCtx, msg, height)
		cancel()
		if err == nil {
			return out, nil
		}

		lastErr = err
		if rpcerr.IsRemote(err) || ctx.Err() != nil {
			return nil, err
		}
		metrics.RPCTransportErrors.WithLabelValues(c.netDef.Identifier).Inc()
	}
	return nil, fmt.Errorf("eth_call to %s via %s failed after %d attempts: %w", target.Hex(), c.rpcURL, c.maxRetries+1, lastErr)
}

// BlockNumber returns the current head height.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	metrics.RPCRequests.WithLabelValues(c.netDef.Identifier, "eth_blockNumber").Inc()
	callCtx, cancel := c.withCallTimeout(ctx)
	defer cancel()
	return c.ethClient.BlockNumber(callCtx)
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close releases the underlying RPC client.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}

func (c *EVMClient) withCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.rpcCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.rpcCallTimeout)
}

var _ port.Connection = (*EVMClient)(nil)
