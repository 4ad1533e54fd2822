package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/valisia/pkg/provider/llm"
	llmmock "github.com/MrWong99/valisia/pkg/provider/llm/mock"
)

func newTestJudge(t *testing.T, p llm.Provider, opts ...LLMOption) *LLMJudge {
	t.Helper()
	j, err := NewLLMJudge(p, opts...)
	if err != nil {
		t.Fatalf("NewLLMJudge: %v", err)
	}
	return j
}

func TestLLMJudge_FirstTurn(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"is_correct": true, "new_items": ["toothbrush", "map"], "response_text": "I'm packing my suitcase and in it I have toothbrush and map"}`,
	}}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "i'm packing my suitcase and in it i have a toothbrush", nil)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if !v.IsCorrect {
		t.Fatalf("verdict incorrect: %+v", v)
	}
	if len(v.NewItems) != 2 {
		t.Errorf("new_items = %v, want 2 entries", v.NewItems)
	}

	if len(p.CompleteCalls) != 1 {
		t.Fatalf("Complete called %d times", len(p.CompleteCalls))
	}
	req := p.CompleteCalls[0].Req
	if !strings.Contains(req.SystemPrompt, "I'm packing my suitcase") {
		t.Errorf("system prompt = %q", req.SystemPrompt)
	}
	if !strings.Contains(req.Messages[0].Content, "This is the first turn") {
		t.Errorf("first-turn prompt not used: %q", req.Messages[0].Content)
	}
}

func TestLLMJudge_FirstTurnWrongItemCount(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"is_correct": true, "new_items": ["toothbrush"], "response_text": "ok"}`,
	}}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "toothbrush", nil)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if !v.TechnicalFallback() {
		t.Errorf("expected technical fallback, got %+v", v)
	}
}

func TestLLMJudge_FirstTurnIncorrectVerdictFallsBack(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"is_correct": false, "new_items": [], "response_text": "The game is over!", "error_description": "You named no item."}`,
	}}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "i'm packing my suitcase", nil)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	// The opening turn has nothing to repeat, so it can never end the game.
	if !v.TechnicalFallback() {
		t.Fatalf("expected technical fallback, got %+v", v)
	}
	if v.ErrorDescription != TechnicalErrorDescription {
		t.Errorf("error_description = %q", v.ErrorDescription)
	}
}

func TestLLMJudge_SubsequentTurnCarriesList(t *testing.T) {
	t.Parallel()

	cur := []string{"shirt", "socks"}
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"is_correct": true, "new_items": ["shirt", "socks", "lamp"], "response_text": "Great, the lamp joins shirt and socks"}`,
	}}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "shirt socks and a lamp", cur)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if !v.IsCorrect {
		t.Fatalf("verdict incorrect: %+v", v)
	}
	want := []string{"shirt", "socks", "lamp"}
	for i := range want {
		if v.NewItems[i] != want[i] {
			t.Errorf("new_items[%d] = %q, want %q", i, v.NewItems[i], want[i])
		}
	}
	if !strings.Contains(p.CompleteCalls[0].Req.Messages[0].Content, "[shirt, socks]") {
		t.Errorf("prompt missing current list: %q", p.CompleteCalls[0].Req.Messages[0].Content)
	}
}

func TestLLMJudge_RepairsRecognitionDrift(t *testing.T) {
	t.Parallel()

	// The model echoed the recognized spelling "sox"; the canonical "socks"
	// must win.
	cur := []string{"shirt", "socks"}
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"is_correct": true, "new_items": ["shirt", "sox", "lamp"], "response_text": "ok"}`,
	}}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "shirt sox lamp", cur)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if !v.IsCorrect {
		t.Fatalf("verdict incorrect: %+v", v)
	}
	if v.NewItems[1] != "socks" {
		t.Errorf("new_items[1] = %q, want repaired %q", v.NewItems[1], "socks")
	}
}

// passthroughRepairer never repairs anything, exercising the judge paths that
// cannot assume the phonetic implementation.
type passthroughRepairer struct{}

func (passthroughRepairer) Repair(recognized string, _ []string) (string, float64, bool) {
	return recognized, 0, false
}

func TestLLMJudge_CustomRepairer(t *testing.T) {
	t.Parallel()

	cur := []string{"shirt", "socks"}
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"is_correct": true, "new_items": ["shirt", "socks", "lamp"], "response_text": "ok"}`,
	}}
	j := newTestJudge(t, p, WithRepairer(passthroughRepairer{}))

	v, err := j.Judge(context.Background(), "shirt socks lamp", cur)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if !v.IsCorrect {
		t.Fatalf("exact repetition must pass without repairs: %+v", v)
	}
}

func TestLLMJudge_PrefixViolationFallsBack(t *testing.T) {
	t.Parallel()

	cur := []string{"shirt", "socks"}
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"is_correct": true, "new_items": ["banana", "socks", "lamp"], "response_text": "ok"}`,
	}}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "banana socks lamp", cur)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if !v.TechnicalFallback() {
		t.Fatalf("expected technical fallback, got %+v", v)
	}
	// The fallback must hand back the identical slice, not a copy.
	if len(v.NewItems) != len(cur) || &v.NewItems[0] != &cur[0] {
		t.Error("fallback NewItems is not the identical input slice")
	}
}

func TestLLMJudge_MalformedReplyFallsBack(t *testing.T) {
	t.Parallel()

	cur := []string{"shirt"}
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "I refuse."}}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "shirt and a lamp", cur)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if !v.TechnicalFallback() {
		t.Errorf("expected technical fallback, got %+v", v)
	}
	if v.ErrorDescription != TechnicalErrorDescription {
		t.Errorf("error_description = %q", v.ErrorDescription)
	}
}

func TestLLMJudge_CompletionErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("service unreachable")
	p := &llmmock.Provider{CompleteErr: wantErr}
	j := newTestJudge(t, p)

	if _, err := j.Judge(context.Background(), "shirt", nil); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestLLMJudge_GameOverVerdict(t *testing.T) {
	t.Parallel()

	cur := []string{"shirt", "socks"}
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"is_correct": false, "new_items": [], "response_text": "The game is over!", "error_description": "You forgot socks."}`,
	}}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "shirt and a lamp", cur)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if v.IsCorrect || v.TechnicalFallback() {
		t.Fatalf("expected genuine game over, got %+v", v)
	}
	if v.ErrorDescription != "You forgot socks." {
		t.Errorf("error_description = %q", v.ErrorDescription)
	}
}

func TestLLMJudge_BlacklistSubstitution(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"is_correct": true, "new_items": ["Hat", "map"], "response_text": "I'm packing my suitcase and in it I have a hat and a map. What a hattrick!"}`,
	}}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "a hat", nil)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if v.NewItems[0] != "cap" {
		t.Errorf("new_items[0] = %q, want %q", v.NewItems[0], "cap")
	}
	if strings.Contains(strings.ToLower(v.ResponseText), " hat ") {
		t.Errorf("response_text still mentions hat: %q", v.ResponseText)
	}
	// Only standalone words are substituted.
	if !strings.Contains(v.ResponseText, "hattrick") {
		t.Errorf("substitution leaked into larger word: %q", v.ResponseText)
	}
}

func TestLLMJudge_EmptyUtteranceFallsBack(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{}
	j := newTestJudge(t, p)

	v, err := j.Judge(context.Background(), "   ", []string{"shirt"})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if !v.TechnicalFallback() {
		t.Errorf("expected technical fallback, got %+v", v)
	}
	if len(p.CompleteCalls) != 0 {
		t.Error("no completion should be issued for an empty utterance")
	}
}
