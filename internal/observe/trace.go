// Package observe wraps every inbound request with a trace identity,
// times it, classifies its outcome, and fans the result out to the
// metrics registry and the structured log.
package observe

import (
	"time"

	"github.com/google/uuid"
)

// Trace carries one request's identity through logging and metrics.
// Created at request entry, discarded when the response is emitted;
// never shared across requests.
type Trace struct {
	ID       string
	Endpoint string
	start    time.Time
}

// NewTrace assigns a fresh trace id (UUIDv4, 122 bits of entropy) and
// records the monotonic start time.
func NewTrace(endpoint string) *Trace {
	return &Trace{
		ID:       uuid.NewString(),
		Endpoint: endpoint,
		start:    time.Now(),
	}
}

// Elapsed is the time since the trace was created.
func (t *Trace) Elapsed() time.Duration {
	return time.Since(t.start)
}
