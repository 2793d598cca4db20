// Package requestlog persists one record per completed request: a
// JSON file per request on disk, and optionally a PostgreSQL table
// queryable over the API. All writes happen off the request path.
package requestlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/voicekit/tts-gateway/internal/observe"
)

// FileSink writes request-<trace>.json files into a directory.
type FileSink struct {
	dir string
}

// NewFileSink creates the log directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Record writes one self-contained JSON file for the request.
func (s *FileSink) Record(rec observe.LogRecord) error {
	data, err := json.MarshalIndent(recordRow(rec), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal request log: %w", err)
	}
	path := filepath.Join(s.dir, "request-"+rec.TraceID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write request log: %w", err)
	}
	return nil
}

// Row is the persisted shape of a request record.
type Row struct {
	TraceID    string  `json:"request_id"`
	Timestamp  string  `json:"timestamp"`
	Endpoint   string  `json:"endpoint"`
	Status     string  `json:"status"`
	LatencyMs  float64 `json:"latency_ms"`
	Error      string  `json:"error,omitempty"`
	InputText  string  `json:"input_text,omitempty"`
	Language   string  `json:"language,omitempty"`
	AudioFile  string  `json:"audio_file,omitempty"`
	AudioBytes int     `json:"audio_bytes,omitempty"`
}

func recordRow(rec observe.LogRecord) Row {
	return Row{
		TraceID:    rec.TraceID,
		Timestamp:  rec.Timestamp.Format("2006-01-02 15:04:05"),
		Endpoint:   rec.Endpoint,
		Status:     rec.Status.String(),
		LatencyMs:  rec.LatencyMs,
		Error:      rec.Error,
		InputText:  rec.InputText,
		Language:   rec.Language,
		AudioFile:  rec.AudioFile,
		AudioBytes: rec.AudioBytes,
	}
}
