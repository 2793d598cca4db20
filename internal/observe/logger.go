package observe

import (
	"log/slog"
	"time"

	"github.com/voicekit/tts-gateway/internal/metrics"
)

// LogRecord is the self-contained record emitted once per request, at
// completion, on every path including failures.
type LogRecord struct {
	TraceID    string          `json:"request_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Endpoint   string          `json:"endpoint"`
	Status     metrics.Outcome `json:"-"`
	LatencyMs  float64         `json:"latency_ms"`
	Error      string          `json:"error,omitempty"`
	InputText  string          `json:"input_text,omitempty"`
	Language   string          `json:"language,omitempty"`
	AudioFile  string          `json:"audio_file,omitempty"`
	AudioBytes int             `json:"audio_bytes,omitempty"`
}

// Sink receives completed records for persistence. Sink errors never
// reach the request path.
type Sink interface {
	Record(LogRecord) error
}

// Logger emits one structured record per request and forwards it to
// any configured sinks. Sink failures are swallowed and counted.
type Logger struct {
	log       *slog.Logger
	sinks     []Sink
	onFailure func()
}

// NewLogger builds a request logger. onFailure may be nil; sinks may
// be empty.
func NewLogger(log *slog.Logger, onFailure func(), sinks ...Sink) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log, sinks: sinks, onFailure: onFailure}
}

// Emit writes the record to the structured log and every sink. It is
// called exactly once per request and never fails back into the
// request path.
func (l *Logger) Emit(rec LogRecord) {
	attrs := []any{
		"trace_id", rec.TraceID,
		"endpoint", rec.Endpoint,
		"status", rec.Status.String(),
		"latency_ms", rec.LatencyMs,
	}
	if rec.AudioBytes > 0 {
		attrs = append(attrs, "audio_bytes", rec.AudioBytes)
	}
	if rec.Error != "" {
		attrs = append(attrs, "error", rec.Error)
	}

	switch rec.Status {
	case metrics.OutcomeSuccess:
		l.log.Info("request completed", attrs...)
	case metrics.OutcomeClientError:
		l.log.Warn("request rejected", attrs...)
	default:
		l.log.Error("request failed", attrs...)
	}

	for _, s := range l.sinks {
		if err := s.Record(rec); err != nil {
			l.log.Warn("request log sink write failed", "trace_id", rec.TraceID, "error", err)
			if l.onFailure != nil {
				l.onFailure()
			}
		}
	}
}
