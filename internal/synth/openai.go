package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// openaiSynthesizer drives any server exposing the OpenAI speech API
// (/v1/audio/speech) through the official SDK, whether a local engine
// like Kokoro or the hosted API itself.
type openaiSynthesizer struct {
	client openai.Client
	model  string
	voice  string
}

// NewOpenAISynthesizer creates an OpenAI-compatible backend. baseURL
// points at the engine's /v1 root; apiKey may be empty for local
// servers.
func NewOpenAISynthesizer(baseURL, apiKey, model, voice string, httpClient *http.Client) Synthesizer {
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &openaiSynthesizer{
		client: openai.NewClient(opts...),
		model:  model,
		voice:  voice,
	}
}

func (o *openaiSynthesizer) SynthesizeAudio(ctx context.Context, text string, opts Options) ([]byte, error) {
	voice := o.voice
	if opts.Voice != "" {
		voice = opts.Voice
	}
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	}
	if opts.Speed > 0 {
		params.Speed = openai.Float(opts.Speed)
	}

	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrEngineUnavailable)
	}
	return audio, nil
}
