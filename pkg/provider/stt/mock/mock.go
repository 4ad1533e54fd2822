// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider in unit tests to feed controlled transcripts to the turn
// orchestrator and to verify the audio payload it forwards, without a live
// recognition backend.
//
// Example:
//
//	p := &mock.Provider{Text: "i'm packing a shirt"}
//	text, err := p.Transcribe(ctx, payload, "audio/webm")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/valisia/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is a copy of the payload passed to Transcribe.
	Audio []byte
	// MimeType is the MIME type passed to Transcribe.
	MimeType string
}

// Provider is a mock implementation of stt.Provider.
// Zero values cause Transcribe to return ("", nil); set Err to inject errors.
type Provider struct {
	mu sync.Mutex

	// Text is returned by Transcribe when Err is nil.
	Text string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeCalls records every invocation of Transcribe in order.
	TranscribeCalls []TranscribeCall
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	p.mu.Lock()
	cp := make([]byte, len(audio))
	copy(cp, audio)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Audio: cp, MimeType: mimeType})
	p.mu.Unlock()

	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}
