package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "position_resolver"

var (
	// RPCRequests counts requests sent to remote endpoints by method.
	RPCRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Requests sent to network endpoints.",
	}, []string{"network", "method"})

	// RPCTransportErrors counts requests that never reached the endpoint.
	RPCTransportErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_transport_errors_total",
		Help:      "Requests that failed before the endpoint answered.",
	}, []string{"network"})

	AggregateRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregate_requests_total",
		Help:      "Aggregate requests submitted, by outcome.",
	}, []string{"network", "outcome"})

	SerialFallbackCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "serial_fallback_calls_total",
		Help:      "Individual calls issued after an aggregate request failed.",
	}, []string{"network"})

	RetriedCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retried_calls_total",
		Help:      "Calls resubmitted by the per-item retry loop.",
	}, []string{"network"})

	ResolutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "resolution_duration_seconds",
		Help:      "Wall time of a full resolution run.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"network", "status"})

	ItemsDiscovered = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registry_items",
		Help:      "Items found in the registry during the last run.",
	}, []string{"network"})
)

var registerOnce sync.Once

// MustRegisterMetrics registers all collectors with the default registerer.
// Safe to call more than once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RPCRequests,
			RPCTransportErrors,
			AggregateRequests,
			SerialFallbackCalls,
			RetriedCalls,
			ResolutionDuration,
			ItemsDiscovered,
		)
	})
}
