package requestlog

import (
	"log/slog"
	"sync"

	"github.com/voicekit/tts-gateway/internal/observe"
)

// Recorder writes records asynchronously via a buffered channel so
// persistence never adds latency to the request path. All methods are
// nil-safe (no-op on nil receiver).
type Recorder struct {
	sinks     []observe.Sink
	onFailure func()

	mu     sync.RWMutex
	closed bool
	ch     chan observe.LogRecord
	done   chan struct{}
}

// NewRecorder starts the drain goroutine. onFailure may be nil; it is
// invoked once per failed sink write. Close must be called to flush.
func NewRecorder(onFailure func(), sinks ...observe.Sink) *Recorder {
	r := &Recorder{
		sinks:     sinks,
		onFailure: onFailure,
		ch:        make(chan observe.LogRecord, 64),
		done:      make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *Recorder) drain() {
	defer close(r.done)
	for rec := range r.ch {
		for _, s := range r.sinks {
			if err := s.Record(rec); err != nil {
				slog.Warn("request log write failed", "trace_id", rec.TraceID, "error", err)
				if r.onFailure != nil {
					r.onFailure()
				}
			}
		}
	}
}

// Record enqueues a record. When the buffer is full, or the recorder
// is already closed (a request that outlived the drain deadline), the
// record is dropped and counted as a log failure rather than blocking
// or failing the request.
func (r *Recorder) Record(rec observe.LogRecord) error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		if r.onFailure != nil {
			r.onFailure()
		}
		return nil
	}
	select {
	case r.ch <- rec:
	default:
		if r.onFailure != nil {
			r.onFailure()
		}
	}
	return nil
}

// Close flushes pending writes and stops the drain goroutine. It is
// idempotent; records arriving after Close are dropped and counted.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	<-r.done
}
