package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicekit/tts-gateway/internal/shutdown"
)

func TestCheckHealthy(t *testing.T) {
	coord := shutdown.NewCoordinator()
	r := NewReporter(coord, "piper")

	st := r.Check()
	assert.Equal(t, "healthy", st.Status)
	assert.Equal(t, "piper", st.Engine)
	assert.Zero(t, st.InFlight)
	assert.GreaterOrEqual(t, st.UptimeSeconds, 0.0)
}

func TestCheckTracksInFlight(t *testing.T) {
	coord := shutdown.NewCoordinator()
	r := NewReporter(coord, "piper")

	require.True(t, coord.Acquire())
	require.True(t, coord.Acquire())
	assert.Equal(t, 2, r.Check().InFlight)

	coord.Release()
	assert.Equal(t, 1, r.Check().InFlight)
}

func TestCheckDrainingAndStopped(t *testing.T) {
	coord := shutdown.NewCoordinator()
	r := NewReporter(coord, "piper")

	require.True(t, coord.Acquire())
	coord.BeginDrain(time.Minute)
	assert.Equal(t, "draining", r.Check().Status)

	coord.Release()
	coord.WaitForDrain()
	assert.Equal(t, "stopped", r.Check().Status)
}
