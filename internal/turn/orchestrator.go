// Package turn runs one full game turn: transcribe the player's audio, judge
// the utterance against the current item list, derive the next list, and
// synthesize the spoken reply.
//
// The orchestrator is the only place where the stage results are combined
// into a [game.TurnResult]; the HTTP layer and the providers never see each
// other.
package turn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/valisia/internal/game"
	"github.com/MrWong99/valisia/internal/judge"
	"github.com/MrWong99/valisia/internal/observe"
	"github.com/MrWong99/valisia/pkg/provider/stt"
	"github.com/MrWong99/valisia/pkg/provider/tts"
)

// gameOverPrefix starts every spoken reply that ends a game.
const gameOverPrefix = "Game over! "

// Orchestrator wires the three pipeline stages together.
type Orchestrator struct {
	stt     stt.Provider
	judge   judge.Judge
	tts     tts.Provider
	metrics *observe.Metrics
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithMetrics replaces the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New returns an Orchestrator over the given providers. All three are
// required.
func New(sttProvider stt.Provider, j judge.Judge, ttsProvider tts.Provider, opts ...Option) (*Orchestrator, error) {
	if sttProvider == nil || j == nil || ttsProvider == nil {
		return nil, fmt.Errorf("turn: stt, judge, and tts must all be provided")
	}
	o := &Orchestrator{
		stt:   sttProvider,
		judge: j,
		tts:   ttsProvider,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o, nil
}

// RunTurn executes one game turn against the supplied item list and returns
// the outcome. It never returns an error: every failure mode is folded into a
// [game.TurnResult] with Success false and a player-facing Error, so the
// caller always has something to show.
//
// State semantics of the result:
//
//   - a failed turn carries Items nil, so the caller's list survives
//   - a correct turn carries the full new list
//   - a game-over turn carries an empty non-nil list and an audio reply
//     prefixed with "Game over!"
func (o *Orchestrator) RunTurn(ctx context.Context, audio []byte, mimeType string, currentItems []string) game.TurnResult {
	turnStart := time.Now()
	defer func() {
		o.metrics.RecordStage(ctx, "turn", time.Since(turnStart))
	}()

	// Stage 1: speech to text.
	sttStart := time.Now()
	userText, err := o.stt.Transcribe(ctx, audio, mimeType)
	o.metrics.RecordStage(ctx, "transcription", time.Since(sttStart))
	if err != nil {
		slog.Warn("transcription failed", "error", err, "audio_bytes", len(audio))
		o.metrics.RecordProviderError(ctx, "stt", "transcription")
		o.metrics.RecordTurnOutcome(ctx, "failed")
		return game.TurnResult{Success: false, Error: stt.UserMessage(err)}
	}
	slog.Debug("player utterance transcribed", "text", userText, "items", len(currentItems))

	// Stage 2: judge the utterance.
	judgeStart := time.Now()
	verdict, err := o.judge.Judge(ctx, userText, currentItems)
	o.metrics.RecordStage(ctx, "judge", time.Since(judgeStart))
	if err != nil {
		slog.Error("judging failed", "error", err)
		o.metrics.RecordProviderError(ctx, "llm", "completion")
		o.metrics.RecordTurnOutcome(ctx, "failed")
		return game.TurnResult{Success: false, Error: "The game master is unavailable right now. Please try again."}
	}

	// Stage 3: derive the next list and the reply text.
	responseText, newItems, outcome := o.applyVerdict(verdict, currentItems)

	// Stage 4: text to speech. A synthesis failure discards the computed
	// list so a turn the player never heard cannot advance the game.
	ttsStart := time.Now()
	replyAudio, err := o.tts.Synthesize(ctx, responseText)
	o.metrics.RecordStage(ctx, "synthesis", time.Since(ttsStart))
	if err != nil {
		slog.Error("synthesis failed", "error", err, "text_len", len(responseText))
		o.metrics.RecordProviderError(ctx, "tts", "synthesis")
		o.metrics.RecordTurnOutcome(ctx, "failed")
		return game.TurnResult{Success: false, Error: "I lost my voice for a moment. Please try again."}
	}

	o.metrics.RecordTurnOutcome(ctx, outcome)
	res := game.TurnResult{Success: true, Audio: replyAudio, Items: newItems}
	if outcome == "game_over" {
		res.Error = verdict.ErrorDescription
	}
	return res
}

// applyVerdict turns a judge verdict into the reply text, the next item list,
// and the metrics outcome label.
func (o *Orchestrator) applyVerdict(v *judge.Verdict, currentItems []string) (responseText string, newItems []string, outcome string) {
	switch {
	case v.IsCorrect:
		return v.ResponseText, game.CopyItems(v.NewItems), "continued"
	case v.TechnicalFallback():
		// Retry without losing progress: the list passes through unchanged.
		return v.ResponseText, game.CopyItems(currentItems), "retry"
	default:
		return gameOverPrefix + v.ErrorDescription, []string{}, "game_over"
	}
}
