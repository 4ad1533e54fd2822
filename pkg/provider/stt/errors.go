package stt

import "errors"

// Error kinds returned by [Provider.Transcribe]. Implementations wrap these
// with fmt.Errorf("...: %w", ...) so callers can classify failures with
// errors.Is while still logging the provider-specific cause.
var (
	// ErrNoSpeech indicates the payload contained silence or produced an empty
	// recognition result.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrUnintelligible indicates the engine heard audio but could not match
	// it to any text.
	ErrUnintelligible = errors.New("speech could not be recognized")

	// ErrServiceBusy indicates the recognition service rate-limited the
	// request. The caller may retry the turn.
	ErrServiceBusy = errors.New("speech service is busy")

	// ErrTransport indicates a connection or service fault, including request
	// cancellation. Wraps ctx.Err() where applicable.
	ErrTransport = errors.New("speech service unreachable")
)

// UserMessage translates a transcription failure into the player-facing
// message the orchestrator surfaces verbatim. Unknown errors get a generic
// description so internal details never leak to the player.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoSpeech):
		return "I didn't hear anything. Please try speaking again."
	case errors.Is(err, ErrUnintelligible):
		return "I couldn't understand that. Please speak a little more clearly."
	case errors.Is(err, ErrServiceBusy):
		return "The listening service is busy right now. Please try again in a moment."
	case errors.Is(err, ErrTransport):
		return "I'm having trouble hearing you due to a connection problem. Please try again."
	default:
		return "Something went wrong while listening. Please try again."
	}
}
