package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicekit/tts-gateway/internal/dashboard"
	"github.com/voicekit/tts-gateway/internal/health"
	"github.com/voicekit/tts-gateway/internal/metrics"
	"github.com/voicekit/tts-gateway/internal/observe"
	"github.com/voicekit/tts-gateway/internal/shutdown"
	"github.com/voicekit/tts-gateway/internal/storage"
	"github.com/voicekit/tts-gateway/internal/synth"
)

type stubEngine struct {
	mu    sync.Mutex
	audio []byte
	err   error
	calls int
}

func (s *stubEngine) SynthesizeAudio(_ context.Context, _ string, _ synth.Options) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.audio, s.err
}

func (s *stubEngine) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type captureSink struct {
	mu      sync.Mutex
	records []observe.LogRecord
}

func (c *captureSink) Record(rec observe.LogRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func (c *captureSink) all() []observe.LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]observe.LogRecord(nil), c.records...)
}

type fixture struct {
	mux      *http.ServeMux
	registry *metrics.Registry
	coord    *shutdown.Coordinator
	sink     *captureSink
	hub      *dashboard.Hub
}

func newFixture(t *testing.T, engine synth.Synthesizer) *fixture {
	t.Helper()

	cfg := loadConfig()
	cfg.synthTimeout = time.Second

	registry := metrics.NewRegistry()
	coord := shutdown.NewCoordinator()
	sink := &captureSink{}
	logger := observe.NewLogger(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)), registry.IncLogFailure, sink)
	observer := observe.NewObserver(registry, logger, coord)
	summarizer := dashboard.NewSummarizer(registry, coord, serviceName, "piper")
	hub := dashboard.NewHub(summarizer, time.Hour)
	t.Cleanup(hub.Close)

	audioDir := t.TempDir()
	cfg.audioDir = audioDir
	audioStore, err := storage.NewFSStore(audioDir)
	require.NoError(t, err)

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		cfg:        cfg,
		registry:   registry,
		observer:   observer,
		reporter:   health.NewReporter(coord, "piper"),
		summarizer: summarizer,
		hub:        hub,
		tts:        synth.NewRouter(map[string]synth.Synthesizer{"piper": engine}, "piper"),
		audio:      audioStore,
		logStore:   nil,
		validate:   validator.New(),
	})

	return &fixture{mux: mux, registry: registry, coord: coord, sink: sink, hub: hub}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func TestTTSSuccessScenario(t *testing.T) {
	engine := &stubEngine{audio: make([]byte, 2048)}
	f := newFixture(t, engine)

	w := f.do("POST", "/tts", `{"text": "hello"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Latency-Ms"))
	assert.Len(t, w.Body.Bytes(), 2048)

	snap := f.registry.Snapshot()
	tts := snap.Endpoints["/tts"]
	assert.Equal(t, uint64(1), tts.Requests)
	assert.Zero(t, tts.TotalErrors())
	assert.Equal(t, uint64(1), snap.AudioBytesCount)
	assert.Equal(t, uint64(2048), snap.AudioBytesSum)

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, metrics.OutcomeSuccess, records[0].Status)
	assert.Equal(t, "hello", records[0].InputText)
	assert.Equal(t, w.Header().Get("X-Request-ID"), records[0].TraceID)
}

func TestTTSEmptyTextIsClientErrorWithoutEngineCall(t *testing.T) {
	engine := &stubEngine{audio: []byte("x")}
	f := newFixture(t, engine)

	w := f.do("POST", "/tts", `{"text": ""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, engine.callCount(), "collaborator must not be invoked on invalid input")

	tts := f.registry.Snapshot().Endpoints["/tts"]
	assert.Equal(t, uint64(1), tts.Requests)
	assert.Equal(t, uint64(1), tts.Errors["client_error"])
}

func TestTTSMalformedBodyIsClientError(t *testing.T) {
	f := newFixture(t, &stubEngine{audio: []byte("x")})
	w := f.do("POST", "/tts", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, uint64(1), f.registry.Snapshot().Endpoints["/tts"].Errors["client_error"])
}

func TestTTSOverlongTextIsClientError(t *testing.T) {
	engine := &stubEngine{audio: []byte("x")}
	f := newFixture(t, engine)

	body, err := json.Marshal(map[string]string{"text": strings.Repeat("a", 1001)})
	require.NoError(t, err)
	w := f.do("POST", "/tts", string(body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, engine.callCount())
}

func TestTTSEngineTimeoutIsServerErrorMeteredOnce(t *testing.T) {
	engine := &stubEngine{err: fmt.Errorf("%w: engine took too long", synth.ErrEngineTimeout)}
	f := newFixture(t, engine)

	w := f.do("POST", "/tts", `{"text": "hello"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	tts := f.registry.Snapshot().Endpoints["/tts"]
	assert.Equal(t, uint64(1), tts.Requests)
	assert.Equal(t, uint64(1), tts.Errors["server_error"])

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error, "engine took too long")
}

func TestTTSEngineInvalidInputIsClientError(t *testing.T) {
	engine := &stubEngine{err: fmt.Errorf("%w: unsupported characters", synth.ErrInvalidInput)}
	f := newFixture(t, engine)

	w := f.do("POST", "/tts", `{"text": "hello"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, uint64(1), f.registry.Snapshot().Endpoints["/tts"].Errors["client_error"])
}

func TestHealthReflectsDrainState(t *testing.T) {
	f := newFixture(t, &stubEngine{audio: []byte("x")})

	w := f.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st health.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "healthy", st.Status)

	f.coord.BeginDrain(time.Minute)
	w = f.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "draining", st.Status)
}

func TestTTSRejectedDuringDrainIsCounted(t *testing.T) {
	engine := &stubEngine{audio: []byte("x")}
	f := newFixture(t, engine)
	f.coord.BeginDrain(time.Minute)

	w := f.do("POST", "/tts", `{"text": "hello"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Zero(t, engine.callCount())

	tts := f.registry.Snapshot().Endpoints["/tts"]
	assert.Equal(t, uint64(1), tts.Requests)
	assert.Equal(t, uint64(1), tts.Errors["service_unavailable"])
}

func TestDashboardEndpoint(t *testing.T) {
	f := newFixture(t, &stubEngine{audio: make([]byte, 100)})
	f.do("POST", "/tts", `{"text": "hello"}`)

	w := f.do("GET", "/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)

	var view dashboard.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, serviceName, view.Service)
	assert.Equal(t, uint64(1), view.Endpoints["/tts"].Requests)
	assert.Equal(t, uint64(1), view.Audio.Count)
}

func TestMetricsExposition(t *testing.T) {
	f := newFixture(t, &stubEngine{audio: make([]byte, 100)})
	f.do("POST", "/tts", `{"text": "hello"}`)

	w := f.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "tts_requests_total")
	assert.Contains(t, body, "tts_latency_seconds")
	assert.Contains(t, body, "tts_audio_bytes")
}

func TestEnginesEndpoint(t *testing.T) {
	f := newFixture(t, &stubEngine{audio: []byte("x")})
	w := f.do("GET", "/api/tts/engines", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Engines []string `json:"engines"`
		Default string   `json:"default"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"piper"}, resp.Engines)
}

func TestWarmupUnknownEngine(t *testing.T) {
	f := newFixture(t, &stubEngine{audio: []byte("x")})
	w := f.do("POST", "/api/tts/warmup", `{"engine": "nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWarmupKnownEngine(t *testing.T) {
	engine := &stubEngine{audio: []byte("x")}
	f := newFixture(t, engine)
	w := f.do("POST", "/api/tts/warmup", `{"engine": "piper"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, engine.callCount())
}

func TestRequestListDisabledWithoutStore(t *testing.T) {
	f := newFixture(t, &stubEngine{audio: []byte("x")})
	w := f.do("GET", "/api/requests", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
