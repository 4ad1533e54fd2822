// Package azure provides an Azure Speech-backed STT provider using the
// short-audio REST recognition endpoint. It implements the stt.Provider
// interface.
//
// The Azure endpoint only accepts WAV/PCM input, so every payload is first
// transcoded to 16 kHz mono PCM via pkg/audio before recognition.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/valisia/pkg/audio"
	"github.com/MrWong99/valisia/pkg/provider/stt"
)

const (
	endpointFmt     = "https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1"
	defaultLanguage = "en-US"
	defaultTimeout  = 30 * time.Second
)

// Recognition statuses returned by the Azure short-audio API.
const (
	statusSuccess        = "Success"
	statusNoMatch        = "NoMatch"
	statusInitialSilence = "InitialSilenceTimeout"
	statusBabble         = "BabbleTimeout"
	statusError          = "Error"
)

// Option is a functional option for configuring the Azure Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 recognition language. Default: "en-US".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithEndpoint overrides the regional recognition endpoint URL. Intended for
// tests and sovereign-cloud deployments.
func WithEndpoint(url string) Option {
	return func(p *Provider) { p.endpoint = url }
}

// WithHTTPClient overrides the HTTP client used for recognition requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithTranscoder overrides the audio transcoder. Tests use this to bypass the
// ffmpeg dependency.
func WithTranscoder(t audio.Transcoder) Option {
	return func(p *Provider) { p.transcoder = t }
}

// Provider implements stt.Provider backed by the Azure Speech REST API.
type Provider struct {
	key        string
	endpoint   string
	language   string
	httpClient *http.Client
	transcoder audio.Transcoder
}

var _ stt.Provider = (*Provider)(nil)

// New creates a new Azure Speech Provider for the given subscription key and
// region (e.g., "westeurope"). Both must be non-empty.
func New(key, region string, opts ...Option) (*Provider, error) {
	if key == "" {
		return nil, errors.New("azure: key must not be empty")
	}
	if region == "" {
		return nil, errors.New("azure: region must not be empty")
	}
	p := &Provider{
		key:        key,
		endpoint:   fmt.Sprintf(endpointFmt, region),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
		transcoder: &audio.FFmpeg{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// recognitionResponse is the JSON body returned by the short-audio endpoint.
type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
}

// Transcribe implements stt.Provider. The payload is transcoded to WAV,
// submitted for recognition, and the result status mapped onto the stt error
// kinds. Temp artifacts created during transcoding are released inside the
// transcoder on every path.
func (p *Provider) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	wav, err := p.transcoder.ToWAV(ctx, audioData, mimeType)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("azure: %w: %v", stt.ErrTransport, ctx.Err())
		}
		return "", fmt.Errorf("azure: %w: transcode: %v", stt.ErrUnintelligible, err)
	}

	u := p.endpoint + "?language=" + p.language + "&format=simple"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(wav))
	if err != nil {
		return "", fmt.Errorf("azure: build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.key)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure: %w: %v", stt.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("azure: %w: HTTP 429", stt.ErrServiceBusy)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("azure: %w: HTTP %d: %s", stt.ErrTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rec recognitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return "", fmt.Errorf("azure: %w: decode response: %v", stt.ErrTransport, err)
	}

	switch rec.RecognitionStatus {
	case statusSuccess:
		text := strings.ToLower(strings.TrimSpace(rec.DisplayText))
		if text == "" {
			return "", fmt.Errorf("azure: %w: empty display text", stt.ErrNoSpeech)
		}
		return text, nil
	case statusInitialSilence:
		return "", fmt.Errorf("azure: %w: initial silence timeout", stt.ErrNoSpeech)
	case statusNoMatch, statusBabble:
		return "", fmt.Errorf("azure: %w: status %s", stt.ErrUnintelligible, rec.RecognitionStatus)
	case statusError:
		return "", fmt.Errorf("azure: %w: service reported an error", stt.ErrTransport)
	default:
		return "", fmt.Errorf("azure: %w: unexpected status %q", stt.ErrTransport, rec.RecognitionStatus)
	}
}
