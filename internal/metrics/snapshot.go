package metrics

import "time"

// EndpointStats is the per-endpoint view inside a Snapshot.
type EndpointStats struct {
	Requests uint64
	Errors   map[string]uint64 // by outcome kind
	Latency  LatencySummary
}

// TotalErrors sums the per-kind error counters.
func (e EndpointStats) TotalErrors() uint64 {
	var n uint64
	for _, c := range e.Errors {
		n += c
	}
	return n
}

// Snapshot is a consistent point-in-time read of the registry. For
// each endpoint, error counters are read before the request total, and
// writers increment the total first, so TotalErrors() ≤ Requests.
type Snapshot struct {
	TakenAt         time.Time
	Endpoints       map[string]EndpointStats
	AudioBytesSum   uint64
	AudioBytesCount uint64
	LogFailures     uint64
	InFlight        int64
}

// Snapshot reads the registry without blocking writers.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	names := make([]string, 0, len(r.endpoints))
	stats := make([]*endpointStats, 0, len(r.endpoints))
	for name, s := range r.endpoints {
		names = append(names, name)
		stats = append(stats, s)
	}
	r.mu.RUnlock()

	snap := Snapshot{
		TakenAt:   time.Now(),
		Endpoints: make(map[string]EndpointStats, len(names)),
	}
	for i, s := range stats {
		es := EndpointStats{Errors: map[string]uint64{}}
		// errors before requests; see Snapshot doc comment
		for o := Outcome(0); o < outcomeCount; o++ {
			if !o.IsError() {
				continue
			}
			if n := s.errors[o].Load(); n > 0 {
				es.Errors[o.String()] = n
			}
		}
		es.Requests = s.requests.Load()
		es.Latency = s.latency.summary()
		snap.Endpoints[names[i]] = es
	}
	snap.AudioBytesCount = r.audioBytesCount.Load()
	snap.AudioBytesSum = r.audioBytesSum.Load()
	snap.LogFailures = r.logFailures.Load()
	snap.InFlight = r.inFlight.Load()
	return snap
}
