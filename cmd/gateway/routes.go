package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/voicekit/tts-gateway/internal/dashboard"
	"github.com/voicekit/tts-gateway/internal/health"
	"github.com/voicekit/tts-gateway/internal/metrics"
	"github.com/voicekit/tts-gateway/internal/observe"
	"github.com/voicekit/tts-gateway/internal/requestlog"
	"github.com/voicekit/tts-gateway/internal/storage"
	"github.com/voicekit/tts-gateway/internal/synth"
)

// defaultRequestListLimit is how many persisted request records are
// returned when the caller omits the ?limit= query parameter.
const defaultRequestListLimit = 50

type deps struct {
	cfg        config
	registry   *metrics.Registry
	observer   *observe.Observer
	reporter   *health.Reporter
	summarizer *dashboard.Summarizer
	hub        *dashboard.Hub
	tts        *synth.Router
	audio      storage.Store
	logStore   *requestlog.Store
	validate   *validator.Validate
}

// registerRoutes wires all HTTP endpoints to the shared mux. Every
// request-accepting endpoint passes through the observer; /health and
// /metrics stay reachable during drain so liveness probes keep working.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.HandleFunc("GET /health", d.handleHealth)
	mux.Handle("GET /metrics", d.registry.Handler())
	mux.HandleFunc("POST /tts", d.observer.Wrap("/tts", d.handleTTS))
	mux.HandleFunc("GET /dashboard", d.observer.Wrap("/dashboard", d.handleDashboard))
	mux.Handle("GET /dashboard/stream", d.hub)
	mux.HandleFunc("GET /api/tts/engines", d.observer.Wrap("/api/tts/engines", d.handleEngines))
	mux.HandleFunc("POST /api/tts/warmup", d.observer.Wrap("/api/tts/warmup", d.handleWarmup))
	mux.HandleFunc("GET /api/requests", d.observer.Wrap("/api/requests", d.handleRequests))
}

func (d deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := d.reporter.Check()
	w.Header().Set("Content-Type", "application/json")
	if st.Status == "stopped" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(st)
}

// ttsRequest is the POST /tts body.
type ttsRequest struct {
	Text   string  `json:"text" validate:"required,min=1,max=1000"`
	Lang   string  `json:"lang" validate:"omitempty,max=16"`
	Engine string  `json:"engine" validate:"omitempty,max=32"`
	Voice  string  `json:"voice" validate:"omitempty,max=64"`
	Speed  float64 `json:"speed" validate:"omitempty,gt=0,lte=3"`
}

func (d deps) handleTTS(w http.ResponseWriter, r *http.Request, tr *observe.Trace) observe.Result {
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return observe.Result{Outcome: metrics.OutcomeClientError, Err: fmt.Errorf("decode request: %w", err)}
	}
	if err := d.validate.Struct(req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return observe.Result{
			Outcome:   metrics.OutcomeClientError,
			Err:       fmt.Errorf("validate request: %w", err),
			InputText: req.Text,
			Language:  req.Lang,
		}
	}

	voice := req.Voice
	if voice == "" {
		voice = synth.ResolveVoice(req.Lang)
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.cfg.synthTimeout)
	defer cancel()
	audio, err := d.tts.Synthesize(ctx, req.Text, req.Engine, synth.Options{Voice: voice, Speed: req.Speed})
	if err != nil {
		outcome := synthOutcome(err)
		if outcome == metrics.OutcomeClientError {
			http.Error(w, "invalid input text", http.StatusBadRequest)
		} else {
			http.Error(w, "audio generation failed", http.StatusInternalServerError)
		}
		return observe.Result{Outcome: outcome, Err: err, InputText: req.Text, Language: req.Lang}
	}

	filename := "speech-" + tr.ID + ".mp3"
	ref, err := d.audio.Store(r.Context(), filename, audio)
	if err != nil {
		http.Error(w, "failed to store audio", http.StatusInternalServerError)
		return observe.Result{Outcome: metrics.OutcomeServerError, Err: err, InputText: req.Text, Language: req.Lang}
	}

	latencyMs := float64(tr.Elapsed().Microseconds()) / 1000.0
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("X-Request-ID", tr.ID)
	w.Header().Set("X-Latency-Ms", strconv.FormatFloat(latencyMs, 'f', 2, 64))
	w.Write(audio)

	return observe.Result{
		Outcome:    metrics.OutcomeSuccess,
		InputText:  req.Text,
		Language:   req.Lang,
		AudioFile:  ref,
		AudioBytes: len(audio),
	}
}

func (d deps) handleDashboard(w http.ResponseWriter, r *http.Request, _ *observe.Trace) observe.Result {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d.summarizer.Summarize()); err != nil {
		return observe.Result{Outcome: metrics.OutcomeServerError, Err: err}
	}
	return observe.Result{Outcome: metrics.OutcomeSuccess}
}

func (d deps) handleEngines(w http.ResponseWriter, r *http.Request, _ *observe.Trace) observe.Result {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"engines":   d.tts.Engines(),
		"default":   d.cfg.defaultEngine,
		"languages": synth.Languages(),
	})
	return observe.Result{Outcome: metrics.OutcomeSuccess}
}

func (d deps) handleWarmup(w http.ResponseWriter, r *http.Request, _ *observe.Trace) observe.Result {
	var req struct {
		Engine string `json:"engine"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return observe.Result{Outcome: metrics.OutcomeClientError, Err: fmt.Errorf("decode request: %w", err)}
	}
	if !d.tts.Has(req.Engine) {
		http.Error(w, "engine not available", http.StatusNotFound)
		return observe.Result{Outcome: metrics.OutcomeClientError, Err: fmt.Errorf("unknown engine %q", req.Engine)}
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.cfg.synthTimeout)
	defer cancel()
	if _, err := d.tts.Synthesize(ctx, "Hello.", req.Engine, synth.Options{}); err != nil {
		http.Error(w, "warmup failed", http.StatusInternalServerError)
		return observe.Result{Outcome: synthOutcome(err), Err: err}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "engine": req.Engine})
	return observe.Result{Outcome: metrics.OutcomeSuccess}
}

func (d deps) handleRequests(w http.ResponseWriter, r *http.Request, _ *observe.Trace) observe.Result {
	if d.logStore == nil {
		http.Error(w, "request log persistence disabled", http.StatusNotFound)
		return observe.Result{Outcome: metrics.OutcomeClientError, Err: errors.New("request log persistence disabled")}
	}
	limit := queryInt(r, "limit", defaultRequestListLimit)
	offset := queryInt(r, "offset", 0)
	records, total, err := d.logStore.List(limit, offset)
	if err != nil {
		http.Error(w, "query failed", http.StatusInternalServerError)
		return observe.Result{Outcome: metrics.OutcomeServerError, Err: err}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"requests": records, "total": total})
	return observe.Result{Outcome: metrics.OutcomeSuccess}
}

// synthOutcome maps a synthesis failure kind onto the request outcome:
// bad input stays a client error, engine timeouts and unavailability
// are server errors.
func synthOutcome(err error) metrics.Outcome {
	if errors.Is(err, synth.ErrInvalidInput) {
		return metrics.OutcomeClientError
	}
	return metrics.OutcomeServerError
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
