// Package shutdown coordinates the drain sequence: stop admitting new
// requests, let in-flight ones finish within a deadline, then stop.
package shutdown

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// State is the coordinator's lifecycle phase.
type State int

const (
	StateRunning State = iota
	StateDraining
	StateStopped
)

// String returns the lowercase name used in health and dashboard payloads.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Coordinator tracks in-flight requests and drives the
// running → draining → stopped transition.
//
// Every request-accepting entry point calls Acquire before doing work
// and Release on every exit path. BeginDrain flips the coordinator to
// draining; WaitForDrain blocks until the in-flight count reaches zero
// or the drain deadline elapses, whichever comes first.
type Coordinator struct {
	clock clockz.Clock

	mu       sync.Mutex
	state    State
	inflight int
	deadline time.Time
	// closed by Release when inflight hits zero while draining,
	// or by BeginDrain when there was nothing in flight.
	drained   chan struct{}
	drainOnce sync.Once
}

// NewCoordinator returns a running coordinator on the real clock.
func NewCoordinator() *Coordinator {
	return NewCoordinatorWithClock(clockz.RealClock)
}

// NewCoordinatorWithClock injects the clock, for deterministic tests.
func NewCoordinatorWithClock(clock clockz.Clock) *Coordinator {
	return &Coordinator{
		clock:   clock,
		state:   StateRunning,
		drained: make(chan struct{}),
	}
}

// Acquire admits one request. It returns false once the coordinator is
// draining or stopped; callers must not invoke downstream work on false.
// A true return must be paired with exactly one Release.
func (c *Coordinator) Acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return false
	}
	c.inflight++
	return true
}

// Release marks one admitted request as complete.
func (c *Coordinator) Release() {
	c.mu.Lock()
	c.inflight--
	signal := c.state == StateDraining && c.inflight == 0
	c.mu.Unlock()
	if signal {
		c.drainOnce.Do(func() { close(c.drained) })
	}
}

// BeginDrain transitions running → draining and arms the deadline.
// Calls while already draining or stopped are no-ops.
func (c *Coordinator) BeginDrain(timeout time.Duration) {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	c.state = StateDraining
	c.deadline = c.clock.Now().Add(timeout)
	empty := c.inflight == 0
	c.mu.Unlock()
	if empty {
		c.drainOnce.Do(func() { close(c.drained) })
	}
}

// WaitForDrain blocks until all admitted requests complete or the drain
// deadline elapses, then transitions to stopped. It reports whether the
// drain finished cleanly (true) or hit the deadline (false).
// Calling it before BeginDrain, or twice, returns immediately.
func (c *Coordinator) WaitForDrain() bool {
	c.mu.Lock()
	if c.state != StateDraining {
		stopped := c.state == StateStopped
		c.mu.Unlock()
		return stopped
	}
	wait := c.deadline.Sub(c.clock.Now())
	c.mu.Unlock()

	clean := true
	select {
	case <-c.drained:
	case <-c.clock.After(wait):
		clean = false
	}

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()
	return clean
}

// State returns the current lifecycle phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InFlight returns the number of admitted, not yet released requests.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}
