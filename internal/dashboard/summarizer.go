// Package dashboard derives a human-readable summary from the metrics
// snapshot and pushes it to live subscribers.
package dashboard

import (
	"time"

	"github.com/voicekit/tts-gateway/internal/metrics"
	"github.com/voicekit/tts-gateway/internal/shutdown"
)

// EndpointView is one endpoint's derived stats.
type EndpointView struct {
	Requests     uint64            `json:"requests"`
	Errors       map[string]uint64 `json:"errors,omitempty"`
	ErrorRate    float64           `json:"error_rate"`
	AvgLatencyMs float64           `json:"avg_latency_ms"`
	P95LatencyMs float64           `json:"p95_latency_ms"`
}

// AudioView summarizes generated audio sizes.
type AudioView struct {
	Count      uint64  `json:"count"`
	TotalBytes uint64  `json:"total_bytes"`
	AvgBytes   float64 `json:"avg_bytes"`
}

// View is the dashboard payload.
type View struct {
	Service           string                  `json:"service"`
	Engine            string                  `json:"engine"`
	Status            string                  `json:"status"`
	UptimeSeconds     float64                 `json:"uptime_seconds"`
	RequestsPerSecond float64                 `json:"requests_per_second"`
	InFlight          int64                   `json:"in_flight"`
	LogFailures       uint64                  `json:"log_failures,omitempty"`
	Endpoints         map[string]EndpointView `json:"endpoints"`
	Audio             AudioView               `json:"audio"`
}

// Summarizer turns snapshots into views. Pure reads, no mutation.
type Summarizer struct {
	registry *metrics.Registry
	coord    *shutdown.Coordinator
	service  string
	engine   string
	started  time.Time
}

// NewSummarizer binds the dashboard to its read sources.
func NewSummarizer(registry *metrics.Registry, coord *shutdown.Coordinator, service, engine string) *Summarizer {
	return &Summarizer{
		registry: registry,
		coord:    coord,
		service:  service,
		engine:   engine,
		started:  time.Now(),
	}
}

// Summarize reads a snapshot and derives rates and averages. Endpoints
// with zero requests report an error rate of 0, never a division error.
func (s *Summarizer) Summarize() View {
	snap := s.registry.Snapshot()
	uptime := time.Since(s.started).Seconds()

	var totalRequests uint64
	endpoints := make(map[string]EndpointView, len(snap.Endpoints))
	for name, es := range snap.Endpoints {
		totalRequests += es.Requests
		ev := EndpointView{
			Requests:     es.Requests,
			AvgLatencyMs: es.Latency.Mean() * 1000,
			P95LatencyMs: es.Latency.Quantile(0.95) * 1000,
		}
		if len(es.Errors) > 0 {
			ev.Errors = es.Errors
		}
		if es.Requests > 0 {
			ev.ErrorRate = float64(es.TotalErrors()) / float64(es.Requests)
		}
		endpoints[name] = ev
	}

	view := View{
		Service:       s.service,
		Engine:        s.engine,
		Status:        s.coord.State().String(),
		UptimeSeconds: uptime,
		InFlight:      snap.InFlight,
		LogFailures:   snap.LogFailures,
		Endpoints:     endpoints,
		Audio: AudioView{
			Count:      snap.AudioBytesCount,
			TotalBytes: snap.AudioBytesSum,
		},
	}
	if uptime > 0 {
		view.RequestsPerSecond = float64(totalRequests) / uptime
	}
	if snap.AudioBytesCount > 0 {
		view.Audio.AvgBytes = float64(snap.AudioBytesSum) / float64(snap.AudioBytesCount)
	}
	return view
}
