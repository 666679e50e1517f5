package metrics

import (
	"errors"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "poolscope"

var rpcRequestCount = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "request_total",
		Help:      "Total number of provider RPC requests",
	},
	[]string{"provider", "method", "status"},
)

var rpcRequestDurationMillis = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "request_duration_millis",
		Help:      "Duration of provider RPC requests in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2000, 4000, 8000},
	},
	[]string{"provider", "method"},
)

var scanChunks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "chunks_total",
		Help:      "Block range queries by outcome (ok, split, skipped)",
	},
	[]string{"provider", "outcome"},
)

var providerScans = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "provider_scans_total",
		Help:      "Provider scan attempts by outcome (selected, empty, error)",
	},
	[]string{"provider", "outcome"},
)

var reputationRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reputation",
		Name:      "request_total",
		Help:      "Reputation lookups by outcome (score, none, error)",
	},
	[]string{"outcome"},
)

var reputationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "reputation",
		Name:      "request_duration_seconds",
		Help:      "Reputation lookup latency in seconds",
		Buckets:   prometheus.DefBuckets,
	},
)

var cacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Result cache lookups by result (hit, miss)",
	},
	[]string{"result"},
)

var pipelineDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "End-to-end scan and enrich duration in seconds",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	},
	[]string{"query", "outcome"},
)

// ObserveRPC records one provider call.
func ObserveRPC(provider, method string, err error, t0 time.Time) {
	rpcRequestCount.WithLabelValues(provider, method, errorToStatus(err)).Inc()
	rpcRequestDurationMillis.WithLabelValues(provider, method).Observe(float64(time.Since(t0).Milliseconds()))
}

func ObserveChunk(provider, outcome string) {
	scanChunks.WithLabelValues(provider, outcome).Inc()
}

func ObserveProviderScan(provider, outcome string) {
	providerScans.WithLabelValues(provider, outcome).Inc()
}

func ObserveReputation(outcome string, t0 time.Time) {
	reputationRequests.WithLabelValues(outcome).Inc()
	reputationDuration.Observe(time.Since(t0).Seconds())
}

func ObserveCache(hit bool) {
	if hit {
		cacheRequests.WithLabelValues("hit").Inc()
		return
	}
	cacheRequests.WithLabelValues("miss").Inc()
}

func ObservePipeline(query, outcome string, t0 time.Time) {
	pipelineDuration.WithLabelValues(query, outcome).Observe(time.Since(t0).Seconds())
}

func errorToStatus(err error) string {
	if err == nil {
		return "ok"
	}
	status := "error"
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			status = "timeout"
		} else {
			status = "connection_refused"
		}
	}
	return status
}
