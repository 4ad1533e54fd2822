// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs) and
// returns a complete encoded audio payload for a piece of text. The game
// serves whole replies to the browser, so the interface is deliberately
// single-shot rather than streaming.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text into a complete encoded audio payload (MP3 for
	// the ElevenLabs implementation). text must be non-empty.
	//
	// Returns an error if synthesis fails for any reason; partial audio is
	// never returned. Implementations must release any connections or streams
	// they opened before returning, on success and failure alike.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
