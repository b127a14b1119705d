package proxy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Proxy outcomes.
const (
	outcomeForwarded     = "forwarded"
	outcomeNetworkError  = "network_error"
	outcomeBreakerOpen   = "breaker_open"
	outcomeDiscoveryMiss = "discovery_miss"
)

var (
	// ProxiedRequestsTotal counts proxied requests by service and outcome.
	ProxiedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_requests_total",
			Help: "Total number of proxied requests by outcome",
		},
		[]string{"service", "outcome"},
	)

	// DownstreamLatency observes the latency of forwarded calls.
	DownstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proxy_downstream_latency_seconds",
			Help:    "Latency of forwarded downstream calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)
)

func recordProxied(service, outcome string) {
	ProxiedRequestsTotal.WithLabelValues(service, outcome).Inc()
}

func observeLatency(service string, d time.Duration) {
	DownstreamLatency.WithLabelValues(service).Observe(d.Seconds())
}
