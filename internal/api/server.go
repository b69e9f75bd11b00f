// Package api implements the gateway's client-facing HTTP surface: the login
// passthrough, the order forwarding endpoints, and the order event feeds.
package api

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"supplygw/internal/metrics"
	"supplygw/internal/upstream"
)

type Server struct {
	Auth   *upstream.AuthClient
	Orders *upstream.OrderClient
	Broker EventBroker

	// Throttles upstream-unavailable log lines; a dead collaborator would
	// otherwise emit one line per proxied request.
	warn *rate.Limiter
}

// NewServer wires the gateway from the environment. Collaborator addresses
// are configuration, never hard-coded; the event broker is Redis-backed when
// REDIS_URL is set, in-memory otherwise.
func NewServer() (*Server, error) {
	timeout := 5 * time.Second
	if v := os.Getenv("UPSTREAM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Millisecond
		}
	}
	authBase := envOr("AUTH_BASE_URL", "http://localhost:8081")
	orderBase := envOr("ORDER_BASE_URL", "http://localhost:8080")

	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	return &Server{
		Auth:   upstream.NewAuthClient(authBase, timeout),
		Orders: upstream.NewOrderClient(orderBase, timeout),
		Broker: broker,
		warn:   rate.NewLimiter(rate.Every(5*time.Second), 3),
	}, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func (s *Server) warnUnavailable(service string, err error) {
	if s.warn.Allow() {
		log.Printf("%s upstream unreachable: %v", service, err)
	}
}

// relayMetrics records one relayed (or failed) collaborator round trip.
func relayMetrics(service string, start time.Time, rl *upstream.Relay, err error) {
	outcome := "unavailable"
	if err == nil {
		outcome = strconv.Itoa(rl.StatusCode)
	}
	metrics.UpstreamRelays.WithLabelValues(service, outcome).Inc()
	metrics.UpstreamLatency.WithLabelValues(service, outcome).Observe(float64(time.Since(start).Milliseconds()))
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(c int) {
	r.code = c
	r.ResponseWriter.WriteHeader(c)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Routes assembles the gateway's client-facing mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Auth passthrough
	mux.HandleFunc("/auth/login", Instrument("/auth/login", s.LoginHandler))

	// Orders
	mux.HandleFunc("/api/orders", Instrument("/api/orders", s.OrdersHandler))
	mux.HandleFunc("/api/orders/", func(w http.ResponseWriter, r *http.Request) {
		// includes /{id}, /{id}/status, and the SSE stream
		if r.URL.Path == "/api/orders/events/stream" {
			s.OrderEventsSSEHandler(w, r)
			return
		}
		Instrument("/api/orders/{id}", s.OrderByIDHandler)(w, r)
	})

	// WebSocket order event feed (not instrumented: needs the raw conn)
	mux.HandleFunc("/ws/orders", s.OrderEventsWSHandler)

	// Health
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/debug", s.DebugJSON)

	// Contract & metrics
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIJSONHandler)
	mux.HandleFunc("/docs", s.DocsHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return mux
}

// Instrument wraps a handler with request counting and latency metrics.
func Instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next(rec, r)
		code := strconv.Itoa(rec.code)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, code).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
	}
}
