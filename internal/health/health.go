// Package health reports process liveness and shutdown-phase state so
// orchestration layers can tell "alive but draining" from "stopped".
package health

import (
	"time"

	"github.com/voicekit/tts-gateway/internal/shutdown"
)

// Status is the health probe payload.
type Status struct {
	Status        string  `json:"status"` // healthy | draining | stopped
	UptimeSeconds float64 `json:"uptime_seconds"`
	Engine        string  `json:"engine"`
	InFlight      int     `json:"in_flight"`
}

// Reporter derives the probe from coordinator state. No side effects;
// it answers even while draining.
type Reporter struct {
	coord   *shutdown.Coordinator
	engine  string
	started time.Time
}

// NewReporter binds the probe to the coordinator.
func NewReporter(coord *shutdown.Coordinator, engine string) *Reporter {
	return &Reporter{coord: coord, engine: engine, started: time.Now()}
}

// Check returns the current health status.
func (r *Reporter) Check() Status {
	status := "healthy"
	switch r.coord.State() {
	case shutdown.StateDraining:
		status = "draining"
	case shutdown.StateStopped:
		status = "stopped"
	}
	return Status{
		Status:        status,
		UptimeSeconds: roundTenth(time.Since(r.started).Seconds()),
		Engine:        r.engine,
		InFlight:      r.coord.InFlight(),
	}
}

func roundTenth(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
