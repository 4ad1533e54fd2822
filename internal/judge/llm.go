package judge

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/MrWong99/valisia/pkg/provider/llm"
)

const systemPrompt = `You are the host of the game "I'm packing my suitcase". You must be strict with the rules.
Your response must be a single, valid JSON object and nothing else. Do not include any text before or after the JSON.`

const firstTurnPromptFmt = `This is the first turn. The player said: "%s".
Extract the item the player is packing. Invent and add your own next item.
Formulate the response according to the template "I'm packing my suitcase and in it I have [player's item] and [your item]".

Return a JSON object in the format:
{"is_correct": true, "new_items": ["player item", "your item"], "response_text": "your formulated response"}`

const subsequentTurnPromptFmt = `The current list of items is: [%s].
The player must repeat this list in the correct order and add one new item.
The player's phrase is: "%s".
The phrase comes from speech recognition, so accept small pronunciation or spelling drift as long as each item is clearly recognizable.
If the player repeated every item in order and added exactly one new item, set is_correct to true and set new_items to the current list followed by the new item, keeping the original spelling of the current items.
If the player missed an item, changed the order, or added nothing new, set is_correct to false, set new_items to an empty array, explain the mistake in error_description, and formulate response_text announcing that the game is over.

Return a JSON object in the format:
{"is_correct": true, "new_items": [...], "response_text": "your formulated response"}
or
{"is_correct": false, "new_items": [], "response_text": "your formulated response", "error_description": "what went wrong"}`

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 512
)

// blacklistPattern matches the one item the host refuses to pack. Replaced
// with blacklistSubstitute wherever it appears as a standalone word.
var blacklistPattern = regexp.MustCompile(`(?i)\bhat\b`)

const blacklistSubstitute = "cap"

// LLMJudge evaluates game turns by prompting a language model and hardening
// its reply into the [Verdict] contract. Any recoverable problem with the
// reply (no JSON, missing fields, a list that contradicts the rules) degrades
// to [Fallback]; only a failed completion call surfaces as an error.
type LLMJudge struct {
	llm         llm.Provider
	repairer    Repairer
	temperature float64
	maxTokens   int
}

// LLMOption configures an [LLMJudge].
type LLMOption func(*LLMJudge)

// WithRepairer replaces the default phonetic repairer used to restore
// recognized item names to their canonical spelling.
func WithRepairer(r Repairer) LLMOption {
	return func(j *LLMJudge) {
		j.repairer = r
	}
}

// WithTemperature sets the sampling temperature for judge completions.
// Default: 0.2, kept low so verdicts stay consistent across retries.
func WithTemperature(t float64) LLMOption {
	return func(j *LLMJudge) {
		j.temperature = t
	}
}

// WithMaxTokens caps the completion length. Default: 512.
func WithMaxTokens(n int) LLMOption {
	return func(j *LLMJudge) {
		j.maxTokens = n
	}
}

// NewLLMJudge returns an LLMJudge backed by the given completion provider.
func NewLLMJudge(provider llm.Provider, opts ...LLMOption) (*LLMJudge, error) {
	if provider == nil {
		return nil, fmt.Errorf("judge: completion provider must not be nil")
	}
	j := &LLMJudge{
		llm:         provider,
		repairer:    NewPhoneticRepairer(),
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(j)
	}
	return j, nil
}

// Judge implements the [Judge] interface.
func (j *LLMJudge) Judge(ctx context.Context, userText string, currentItems []string) (*Verdict, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return Fallback(currentItems), nil
	}

	if pr, ok := j.repairer.(*PhoneticRepairer); ok && len(currentItems) > 0 {
		cov := pr.Coverage(userText, currentItems)
		slog.Debug("utterance coverage of current list",
			"coverage", cov, "items", len(currentItems),
			"below_threshold", cov < DefaultCoverageThreshold)
	}

	resp, err := j.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: j.buildPrompt(userText, currentItems)},
		},
		Temperature: j.temperature,
		MaxTokens:   j.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("judge: completion failed: %w", err)
	}

	v, err := extractVerdict(resp.Content)
	if err != nil {
		slog.Warn("discarding unusable judge reply", "error", err, "reply_len", len(resp.Content))
		return Fallback(currentItems), nil
	}

	applyBlacklist(v)

	if v.IsCorrect {
		if !j.enforceListInvariants(v, currentItems) {
			slog.Warn("judge reply violated list invariants",
				"current_len", len(currentItems), "new_len", len(v.NewItems))
			return Fallback(currentItems), nil
		}
		return v, nil
	}

	// The first turn has no list to get wrong, so an incorrect verdict there
	// can only mean the model misunderstood the task. Ask for a retry instead
	// of ending a game that never started.
	if len(currentItems) == 0 {
		slog.Warn("judge declared game over on the opening turn", "error_description", v.ErrorDescription)
		return Fallback(currentItems), nil
	}
	if v.ErrorDescription == "" {
		v.ErrorDescription = "The list was not repeated correctly."
	}

	return v, nil
}

// buildPrompt renders the turn prompt for the current game phase.
func (j *LLMJudge) buildPrompt(userText string, currentItems []string) string {
	if len(currentItems) == 0 {
		return fmt.Sprintf(firstTurnPromptFmt, userText)
	}
	return fmt.Sprintf(subsequentTurnPromptFmt, strings.Join(currentItems, ", "), userText)
}

// enforceListInvariants validates and normalizes NewItems on a correct
// verdict. On the first turn the list must hold exactly the player's item and
// the host's invented one. On later turns the prior list must survive as an
// unchanged prefix (recognition drift is repaired back to the canonical
// spelling) followed by at least one and at most two new items. Returns false
// when the reply cannot be brought into shape.
func (j *LLMJudge) enforceListInvariants(v *Verdict, currentItems []string) bool {
	for i, item := range v.NewItems {
		v.NewItems[i] = strings.TrimSpace(item)
		if v.NewItems[i] == "" {
			return false
		}
	}

	if len(currentItems) == 0 {
		return len(v.NewItems) == 2
	}

	added := len(v.NewItems) - len(currentItems)
	if added < 1 || added > 2 {
		return false
	}
	for i, cur := range currentItems {
		got := v.NewItems[i]
		if strings.EqualFold(got, cur) {
			v.NewItems[i] = cur
			continue
		}
		canonical, _, ok := j.repairer.Repair(got, []string{cur})
		if !ok {
			return false
		}
		v.NewItems[i] = canonical
	}
	return true
}

// applyBlacklist substitutes the forbidden item in both the list and the
// spoken reply.
func applyBlacklist(v *Verdict) {
	for i, item := range v.NewItems {
		if strings.EqualFold(strings.TrimSpace(item), "hat") {
			v.NewItems[i] = blacklistSubstitute
		} else {
			v.NewItems[i] = blacklistPattern.ReplaceAllString(item, blacklistSubstitute)
		}
	}
	v.ResponseText = blacklistPattern.ReplaceAllString(v.ResponseText, blacklistSubstitute)
}
