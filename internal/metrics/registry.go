// Package metrics owns the process-wide request counters. All mutation
// goes through Registry's atomic operations; handlers never touch the
// underlying state directly.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome is the terminal classification of one request. Metrics and
// log records use the same set so counters and logs always agree.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeClientError
	OutcomeServerError
	OutcomeUnavailable

	outcomeCount
)

// String returns the label value used in metrics and log records.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeClientError:
		return "client_error"
	case OutcomeServerError:
		return "server_error"
	case OutcomeUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// IsError reports whether the outcome counts toward the error counters.
func (o Outcome) IsError() bool {
	return o != OutcomeSuccess
}

var (
	latencyBuckets    = []float64{0.1, 0.3, 0.5, 1.0, 2.0}
	audioBytesBuckets = []float64{5000, 10000, 30000, 60000, 100000}
)

// endpointStats is the per-endpoint aggregate. The request total is
// incremented before any error counter, and Snapshot reads errors
// before the total, so errors never exceed requests in a snapshot.
type endpointStats struct {
	requests atomic.Uint64
	errors   [outcomeCount]atomic.Uint64
	latency  *latencyDigest
}

// Registry aggregates request outcomes for the whole process. It is an
// explicit instance created at startup, safe for arbitrary concurrent
// callers, and doubles as the backing for the prometheus exposition.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*endpointStats

	audioBytesSum   atomic.Uint64
	audioBytesCount atomic.Uint64
	logFailures     atomic.Uint64
	inFlight        atomic.Int64

	prom         *prometheus.Registry
	promRequests *prometheus.CounterVec
	promErrors   *prometheus.CounterVec
	promLatency  *prometheus.HistogramVec
	promAudio    prometheus.Histogram
	promLogFails prometheus.Counter
	promInFlight prometheus.Gauge
}

// NewRegistry creates an empty registry with its own prometheus
// registry (no ambient default-registry globals).
func NewRegistry() *Registry {
	r := &Registry{
		endpoints: map[string]*endpointStats{},
		prom:      prometheus.NewRegistry(),
		promRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tts_requests_total",
			Help: "Total requests received",
		}, []string{"endpoint", "status"}),
		promErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tts_errors_total",
			Help: "Total failed requests",
		}, []string{"endpoint", "kind"}),
		promLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tts_latency_seconds",
			Help:    "Request latency in seconds",
			Buckets: latencyBuckets,
		}, []string{"endpoint"}),
		promAudio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tts_audio_bytes",
			Help:    "Generated audio size in bytes",
			Buckets: audioBytesBuckets,
		}),
		promLogFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tts_log_failures_total",
			Help: "Request log writes that failed and were swallowed",
		}),
		promInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tts_inflight_requests",
			Help: "Requests admitted but not yet completed",
		}),
	}
	r.prom.MustRegister(
		r.promRequests, r.promErrors, r.promLatency,
		r.promAudio, r.promLogFails, r.promInFlight,
	)
	return r
}

func (r *Registry) stats(endpoint string) *endpointStats {
	r.mu.RLock()
	s, ok := r.endpoints[endpoint]
	r.mu.RUnlock()
	if ok {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.endpoints[endpoint]; ok {
		return s
	}
	s = &endpointStats{latency: newLatencyDigest(latencyBuckets)}
	r.endpoints[endpoint] = s
	return s
}

// RecordRequest applies one request's outcome exactly once: request
// total, error counter when applicable, latency observation, and the
// audio size aggregate when audioBytes is positive.
func (r *Registry) RecordRequest(endpoint string, outcome Outcome, latency time.Duration, audioBytes int) {
	s := r.stats(endpoint)

	s.requests.Add(1)
	if outcome.IsError() {
		s.errors[outcome].Add(1)
	}
	s.latency.Observe(latency.Seconds())
	if audioBytes > 0 {
		r.audioBytesSum.Add(uint64(audioBytes))
		r.audioBytesCount.Add(1)
	}

	r.promRequests.WithLabelValues(endpoint, outcome.String()).Inc()
	if outcome.IsError() {
		r.promErrors.WithLabelValues(endpoint, outcome.String()).Inc()
	}
	r.promLatency.WithLabelValues(endpoint).Observe(latency.Seconds())
	if audioBytes > 0 {
		r.promAudio.Observe(float64(audioBytes))
	}
}

// IncLogFailure counts a swallowed request-log write failure.
func (r *Registry) IncLogFailure() {
	r.logFailures.Add(1)
	r.promLogFails.Inc()
}

// RequestStarted and RequestFinished track the in-flight gauge.
func (r *Registry) RequestStarted() {
	r.inFlight.Add(1)
	r.promInFlight.Inc()
}

func (r *Registry) RequestFinished() {
	r.inFlight.Add(-1)
	r.promInFlight.Dec()
}

// Handler serves the prometheus text exposition for GET /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying prometheus gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.prom
}
