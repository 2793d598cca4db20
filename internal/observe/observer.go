package observe

import (
	"fmt"
	"net/http"
	"time"

	"github.com/voicekit/tts-gateway/internal/metrics"
	"github.com/voicekit/tts-gateway/internal/shutdown"
)

// Result is what an observed handler reports back for classification.
// The handler writes the HTTP response itself; Result only feeds
// metrics and logging, keeping classification independent of the
// transport representation.
type Result struct {
	Outcome    metrics.Outcome
	Err        error  // detail for the log record, optional
	InputText  string // echoed into the persisted record, optional
	Language   string
	AudioFile  string
	AudioBytes int // >0 only when audio was produced
}

// Handler is an observed endpoint handler.
type Handler func(w http.ResponseWriter, r *http.Request, tr *Trace) Result

// Observer is the middleware every inbound request passes through:
// admission check, in-flight accounting, trace creation, downstream
// invocation, then metrics update followed by log emission. No exit
// path skips the metrics/log pair, and the in-flight release is
// deferred so it survives handler panics.
type Observer struct {
	registry *metrics.Registry
	logger   *Logger
	coord    *shutdown.Coordinator
}

// NewObserver wires the middleware to its collaborators.
func NewObserver(registry *metrics.Registry, logger *Logger, coord *shutdown.Coordinator) *Observer {
	return &Observer{registry: registry, logger: logger, coord: coord}
}

// Wrap turns an observed handler into an http.HandlerFunc for the
// given endpoint name.
func (o *Observer) Wrap(endpoint string, h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !o.coord.Acquire() {
			// Rejected during drain or after stop: no downstream work,
			// still metered and logged.
			tr := NewTrace(endpoint)
			res := Result{
				Outcome: metrics.OutcomeUnavailable,
				Err:     fmt.Errorf("service %s", o.coord.State()),
			}
			http.Error(w, "service is shutting down", http.StatusServiceUnavailable)
			o.finish(tr, res)
			return
		}

		tr := NewTrace(endpoint)
		o.registry.RequestStarted()

		res := Result{Outcome: metrics.OutcomeServerError}
		defer func() {
			if p := recover(); p != nil {
				res = Result{
					Outcome: metrics.OutcomeServerError,
					Err:     fmt.Errorf("handler panic: %v", p),
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			o.registry.RequestFinished()
			o.coord.Release()
			o.finish(tr, res)
		}()

		res = h(w, r, tr)
	}
}

// finish applies the metrics update and then emits the log record, in
// that order, so counters are already visible to readers of the log.
func (o *Observer) finish(tr *Trace, res Result) {
	latency := tr.Elapsed()
	o.registry.RecordRequest(tr.Endpoint, res.Outcome, latency, res.AudioBytes)

	rec := LogRecord{
		TraceID:    tr.ID,
		Timestamp:  time.Now().UTC(),
		Endpoint:   tr.Endpoint,
		Status:     res.Outcome,
		LatencyMs:  float64(latency.Microseconds()) / 1000.0,
		InputText:  res.InputText,
		Language:   res.Language,
		AudioFile:  res.AudioFile,
		AudioBytes: res.AudioBytes,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	o.logger.Emit(rec)
}
