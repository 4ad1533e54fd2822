// Package judge decides whether a player's utterance correctly continues the
// suitcase game.
//
// The central abstraction is the [Judge] interface: given the transcribed
// utterance and the current item list, it returns a [Verdict]. The production
// implementation ([LLMJudge]) delegates rule evaluation to a language model
// and hardens the model's free-form output into the verdict contract; tests
// swap in a deterministic stub.
package judge

import "context"

// TechnicalErrorDescription is the sentinel carried in
// [Verdict.ErrorDescription] when a verdict is a technical fallback rather
// than a genuine game-over. The orchestrator keys its keep-list/reset-list
// decision on this exact string.
const TechnicalErrorDescription = "Technical error in processing your response."

// FallbackResponseText is the spoken reply for a technical-fallback verdict.
const FallbackResponseText = "Sorry, I had trouble processing that. Please repeat your list more clearly."

// Verdict is the structured outcome of judging one utterance.
type Verdict struct {
	// IsCorrect reports whether the player satisfied the rules this turn.
	IsCorrect bool `json:"is_correct"`

	// NewItems is the full updated item list when IsCorrect is true. When
	// IsCorrect is false it carries the list the caller should fall back to:
	// for a technical fallback this is the identical currentItems slice.
	NewItems []string `json:"new_items"`

	// ResponseText is the host's spoken reply.
	ResponseText string `json:"response_text"`

	// ErrorDescription describes what the player missed on an incorrect
	// verdict. Equal to [TechnicalErrorDescription] for technical fallbacks.
	ErrorDescription string `json:"error_description,omitempty"`
}

// TechnicalFallback reports whether this verdict is a technical fallback
// (retry, keep the list) as opposed to a genuine game-over (reset the list).
func (v *Verdict) TechnicalFallback() bool {
	return !v.IsCorrect && v.ErrorDescription == TechnicalErrorDescription
}

// Fallback builds the technical-fallback verdict for the given list. NewItems
// is the identical slice, not a copy, so callers can rely on the current list
// passing through unchanged.
func Fallback(currentItems []string) *Verdict {
	return &Verdict{
		IsCorrect:        false,
		NewItems:         currentItems,
		ResponseText:     FallbackResponseText,
		ErrorDescription: TechnicalErrorDescription,
	}
}

// Judge evaluates one utterance against the current item list.
//
// Implementations absorb recoverable evaluation problems (malformed model
// output, schema violations) into a fallback verdict; a non-nil error is
// reserved for unrecoverable faults such as the reasoning service being
// unreachable.
type Judge interface {
	Judge(ctx context.Context, userText string, currentItems []string) (*Verdict, error)
}
