// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a remote transcription service (e.g., Azure Speech or
// Deepgram) behind a single-shot interface: given a complete recorded audio
// payload, it returns the recognized text or fails with one of the error kinds
// declared in this package. Providers are responsible for any transcoding the
// underlying recognizer requires and for cleaning up intermediate artifacts on
// every exit path, success and failure alike.
//
// Implementations must be safe for concurrent use; turns from different
// sessions may be transcribed in parallel.
package stt

import "context"

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts the given audio payload to text. mimeType describes
	// the payload's container format (e.g., "audio/webm", "audio/wav") as
	// reported by the recorder; providers that require a specific input format
	// must transcode internally.
	//
	// Successful text is trimmed and lower-cased before return, so callers can
	// compare it without further normalisation. Failures wrap one of the error
	// kinds in this package ([ErrNoSpeech], [ErrUnintelligible],
	// [ErrServiceBusy], [ErrTransport]); use [errors.Is] to classify them and
	// [UserMessage] to obtain the player-facing description.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
