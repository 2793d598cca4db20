package requestlog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicekit/tts-gateway/internal/metrics"
	"github.com/voicekit/tts-gateway/internal/observe"
)

func testRecord(id string) observe.LogRecord {
	return observe.LogRecord{
		TraceID:    id,
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Endpoint:   "/tts",
		Status:     metrics.OutcomeSuccess,
		LatencyMs:  42.5,
		InputText:  "hello",
		Language:   "en",
		AudioFile:  "speech-" + id + ".mp3",
		AudioBytes: 2048,
	}
}

func TestFileSinkWritesOneFilePerRequest(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.Record(testRecord("abc")))

	data, err := os.ReadFile(filepath.Join(dir, "request-abc.json"))
	require.NoError(t, err)

	var row Row
	require.NoError(t, json.Unmarshal(data, &row))
	assert.Equal(t, "abc", row.TraceID)
	assert.Equal(t, "2024-05-01 12:00:00", row.Timestamp)
	assert.Equal(t, "success", row.Status)
	assert.Equal(t, "hello", row.InputText)
	assert.Equal(t, 2048, row.AudioBytes)
}

type slowSink struct {
	mu      sync.Mutex
	records []observe.LogRecord
}

func (s *slowSink) Record(rec observe.LogRecord) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func TestRecorderFlushesOnClose(t *testing.T) {
	sink := &slowSink{}
	r := NewRecorder(nil, sink)

	for i := 0; i < 10; i++ {
		require.NoError(t, r.Record(testRecord("id")))
	}
	r.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.records, 10)
}

type failingSink struct{}

func (failingSink) Record(observe.LogRecord) error { return errors.New("db gone") }

func TestRecorderCountsSinkFailures(t *testing.T) {
	var mu sync.Mutex
	failures := 0
	r := NewRecorder(func() {
		mu.Lock()
		failures++
		mu.Unlock()
	}, failingSink{})

	require.NoError(t, r.Record(testRecord("a")))
	require.NoError(t, r.Record(testRecord("b")))
	r.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, failures)
}

func TestRecordAfterCloseDropsAndCounts(t *testing.T) {
	var mu sync.Mutex
	failures := 0
	sink := &slowSink{}
	r := NewRecorder(func() {
		mu.Lock()
		failures++
		mu.Unlock()
	}, sink)
	r.Close()

	// A request that outlives the drain deadline completes after Close;
	// its record must be dropped, not panic back into the request path.
	assert.NotPanics(t, func() {
		require.NoError(t, r.Record(testRecord("late")))
	})

	mu.Lock()
	assert.Equal(t, 1, failures)
	mu.Unlock()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.records)
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	r := NewRecorder(nil, &slowSink{})
	r.Close()
	assert.NotPanics(t, r.Close)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NoError(t, r.Record(testRecord("x")))
	r.Close()
}
