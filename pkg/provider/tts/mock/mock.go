// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to feed controlled audio payloads to the turn orchestrator and
// to verify the exact response text handed to the synthesis backend.
//
// Example:
//
//	p := &mock.Provider{Audio: []byte("mp3-bytes")}
//	data, err := p.Synthesize(ctx, "Game over!")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/valisia/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the text passed to Synthesize.
	Text string
}

// Provider is a mock implementation of tts.Provider.
// Zero values cause Synthesize to return (nil, nil); set Err to inject errors.
type Provider struct {
	mu sync.Mutex

	// Audio is returned by Synthesize when Err is nil.
	Audio []byte

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// SynthesizeCalls records every invocation of Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

var _ tts.Provider = (*Provider)(nil)

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Text: text})
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return p.Audio, nil
}
