package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the gateway.
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts client-facing requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_http_requests_total", Help: "Total client-facing HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records client-facing request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "gateway_http_request_duration_seconds", Help: "Client-facing request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// UpstreamRelays counts relayed collaborator responses by service and
	// outcome (relayed status code, or "unavailable" on transport failure).
	UpstreamRelays = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_upstream_relays_total", Help: "Collaborator responses relayed, by service and outcome."},
		[]string{"service", "outcome"},
	)
	// UpstreamLatency tracks collaborator round-trip latencies in milliseconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "gateway_upstream_latency_ms", Help: "Collaborator round-trip latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"service", "outcome"},
	)
)

// RegisterDefault registers collectors to the gateway registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(UpstreamRelays)
		Registry.MustRegister(UpstreamLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
