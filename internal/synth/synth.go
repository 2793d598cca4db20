// Package synth talks to external text-to-speech engines. Every
// backend exposes the same Synthesizer interface; failures surface as
// one of three sentinel kinds so callers can classify outcomes without
// knowing which engine was involved.
package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Failure kinds. Backends wrap these so callers use errors.Is.
var (
	ErrInvalidInput      = errors.New("synth: invalid input")
	ErrEngineUnavailable = errors.New("synth: engine unavailable")
	ErrEngineTimeout     = errors.New("synth: engine timeout")
)

// Options holds per-call tuning parameters.
type Options struct {
	Voice string
	Speed float64
}

// Synthesizer produces audio from text.
type Synthesizer interface {
	SynthesizeAudio(ctx context.Context, text string, opts Options) ([]byte, error)
}

// doRequest runs an engine HTTP call and maps transport and status
// failures onto the sentinel kinds.
func doRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: engine status %d: %s", ErrInvalidInput, resp.StatusCode, body)
	default:
		return nil, fmt.Errorf("%w: engine status %d", ErrEngineUnavailable, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrEngineUnavailable)
	}
	return audio, nil
}

func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
}
