package metrics

import (
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequestCountsByOutcome(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("/tts", OutcomeSuccess, 100*time.Millisecond, 2048)
	r.RecordRequest("/tts", OutcomeClientError, 5*time.Millisecond, 0)
	r.RecordRequest("/tts", OutcomeServerError, 2*time.Second, 0)
	r.RecordRequest("/health", OutcomeSuccess, time.Millisecond, 0)

	snap := r.Snapshot()
	tts := snap.Endpoints["/tts"]
	assert.Equal(t, uint64(3), tts.Requests)
	assert.Equal(t, uint64(1), tts.Errors["client_error"])
	assert.Equal(t, uint64(1), tts.Errors["server_error"])
	assert.Equal(t, uint64(2), tts.TotalErrors())
	assert.Equal(t, uint64(1), snap.Endpoints["/health"].Requests)
	assert.Zero(t, snap.Endpoints["/health"].TotalErrors())
}

func TestAudioAggregates(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("/tts", OutcomeSuccess, time.Millisecond, 2048)
	r.RecordRequest("/tts", OutcomeSuccess, time.Millisecond, 1024)
	// errors and non-audio endpoints must not touch the audio aggregate
	r.RecordRequest("/tts", OutcomeServerError, time.Millisecond, 0)
	r.RecordRequest("/dashboard", OutcomeSuccess, time.Millisecond, 0)

	snap := r.Snapshot()
	assert.Equal(t, uint64(2), snap.AudioBytesCount)
	assert.Equal(t, uint64(3072), snap.AudioBytesSum)
}

func TestConcurrentRecordingLosesNothing(t *testing.T) {
	r := NewRegistry()

	const total = 1000
	const failing = 250

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i < failing {
				r.RecordRequest("/tts", OutcomeServerError, time.Millisecond, 0)
			} else {
				r.RecordRequest("/tts", OutcomeSuccess, time.Millisecond, 100)
			}
		}(i)
	}

	// take snapshots while the writers run; the invariant must hold in
	// every single one
	stop := make(chan struct{})
	var snapWG sync.WaitGroup
	snapWG.Add(1)
	go func() {
		defer snapWG.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := r.Snapshot()
			if tts, ok := snap.Endpoints["/tts"]; ok {
				if tts.TotalErrors() > tts.Requests {
					t.Errorf("snapshot invariant violated: errors %d > requests %d", tts.TotalErrors(), tts.Requests)
					return
				}
			}
		}
	}()

	wg.Wait()
	close(stop)
	snapWG.Wait()

	snap := r.Snapshot()
	tts := snap.Endpoints["/tts"]
	assert.Equal(t, uint64(total), tts.Requests)
	assert.Equal(t, uint64(failing), tts.Errors["server_error"])
	assert.Equal(t, uint64(total-failing), snap.AudioBytesCount)
}

func TestSnapshotOnEmptyRegistry(t *testing.T) {
	r := NewRegistry()
	snap := r.Snapshot()
	assert.Empty(t, snap.Endpoints)
	assert.Zero(t, snap.AudioBytesCount)
	assert.Zero(t, snap.LogFailures)
}

func TestLogFailureCounter(t *testing.T) {
	r := NewRegistry()
	r.IncLogFailure()
	r.IncLogFailure()
	assert.Equal(t, uint64(2), r.Snapshot().LogFailures)
}

func TestInFlightGauge(t *testing.T) {
	r := NewRegistry()
	r.RequestStarted()
	r.RequestStarted()
	r.RequestFinished()
	assert.Equal(t, int64(1), r.Snapshot().InFlight)
}

func TestPrometheusExposition(t *testing.T) {
	r := NewRegistry()
	r.RecordRequest("/tts", OutcomeSuccess, 200*time.Millisecond, 2048)
	r.RecordRequest("/tts", OutcomeClientError, time.Millisecond, 0)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}
	require.Contains(t, byName, "tts_requests_total")
	require.Contains(t, byName, "tts_errors_total")
	require.Contains(t, byName, "tts_latency_seconds")
	require.Contains(t, byName, "tts_audio_bytes")

	var sum float64
	for _, m := range byName["tts_requests_total"].GetMetric() {
		sum += m.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, sum)
}
